package bot

import "github.com/tbourn/html-downloader-bot/pkg/telegram"

// Callback data carried by inline buttons.
const (
	ActionStartDownload   = "start_download"
	ActionNewDownload     = "new_download"
	ActionAdminDashboard  = "admin_dashboard"
	ActionAddAPIKey       = "add_api_key"
	ActionAPIKeyList      = "api_key_list"
	ActionDeleteAPIKey    = "delete_api_key"
	ActionUserList        = "user_list"
	ActionRequestsList    = "api_requests_list"
	ActionBackToMain      = "back_to_main"
	ActionBackToDashboard = "back_to_dashboard"
	ActionCancel          = "cancel_operation"
)

// adminOnly lists the actions non-admins are not allowed to trigger.
var adminOnly = map[string]bool{
	ActionAdminDashboard:  true,
	ActionAddAPIKey:       true,
	ActionAPIKeyList:      true,
	ActionDeleteAPIKey:    true,
	ActionUserList:        true,
	ActionRequestsList:    true,
	ActionBackToDashboard: true,
}

func button(text, action string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: action}
}

// column stacks one button per row.
func column(buttons ...telegram.InlineKeyboardButton) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []telegram.InlineKeyboardButton{b})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func mainMenuKeyboard(isAdmin bool) *telegram.InlineKeyboardMarkup {
	if isAdmin {
		return column(
			button("👑 Admin Dashboard", ActionAdminDashboard),
			button("🚀 Start Code Download", ActionStartDownload),
		)
	}
	return column(button("🚀 Start Code Download", ActionStartDownload))
}

func cancelKeyboard() *telegram.InlineKeyboardMarkup {
	return column(button("❌ Cancel", ActionCancel))
}

func dashboardKeyboard() *telegram.InlineKeyboardMarkup {
	return column(
		button("➕ Add API Key", ActionAddAPIKey),
		button("📋 API Key List", ActionAPIKeyList),
		button("🗑️ Delete API Key", ActionDeleteAPIKey),
		button("👥 User List", ActionUserList),
		button("📋 API Requests List", ActionRequestsList),
		button("🔙 Back to Main Menu", ActionBackToMain),
	)
}

func backToDashboardKeyboard() *telegram.InlineKeyboardMarkup {
	return column(button("🔙 Back to Dashboard", ActionBackToDashboard))
}

func afterDownloadKeyboard() *telegram.InlineKeyboardMarkup {
	return column(
		button("🔄 New Code Download", ActionNewDownload),
		button("🏠 Main Menu", ActionBackToMain),
	)
}

func retryKeyboard() *telegram.InlineKeyboardMarkup {
	return column(
		button("🔄 Try Again", ActionNewDownload),
		button("🏠 Main Menu", ActionBackToMain),
	)
}
