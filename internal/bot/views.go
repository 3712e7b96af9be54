package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/html-downloader-bot/internal/domain"
	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/internal/utils"
)

// Telegram rejects messages longer than this.
const maxMessageRunes = 4096

// List limits.
const (
	keyPreviewRunes  = 20
	urlPreviewRunes  = 50
	userListLimit    = 50
	requestListLimit = 20
	errorBodyRunes   = 1000
	errorTextRunes   = 3000 // escaped
)

var numbers = message.NewPrinter(language.English)

func esc(s string) string { return html.EscapeString(s) }

func code(s string) string { return "<code>" + esc(s) + "</code>" }

// escLimit escapes s, keeping at most maxRaw runes of the input and maxEsc
// runes of output. A cut never splits an entity and is marked with Ellipsis,
// which counts against both limits.
func escLimit(s string, maxRaw, maxEsc int) string {
	full := esc(s)
	if utf8.RuneCountInString(s) <= maxRaw && utf8.RuneCountInString(full) <= maxEsc {
		return full
	}
	var b strings.Builder
	raw, n := 0, 0
	for _, r := range s {
		piece := esc(string(r))
		w := utf8.RuneCountInString(piece)
		if raw >= maxRaw-1 || n+w > maxEsc-1 {
			break
		}
		b.WriteString(piece)
		raw++
		n += w
	}
	return b.String() + utils.Ellipsis
}

func count[T ~int | ~int64](n T) string { return code(numbers.Sprintf("%d", n)) }

const (
	textMainMenu = "🤖 <b>Html Secure Code Downloader Bot</b>\n\n" +
		"Bot থেকে যে যেকোনো ওয়েবসাইট এর Html code ডাউনলোড করা যায়!\n\n" +
		"যেকোনো ওয়েবসাইটের HTML কোড সুরক্ষিতভাবে ডাউনলোড করুন।"

	textAdminClaimed = "🎉 Congratulations! You are now the admin of this bot!"

	textURLPrompt = "🌐 <b>Enter website/page URL:</b>\n\n" +
		"Please send the URL of the website you want to download HTML code from.\n\n" +
		"You can cancel this operation using the button below:"

	textKeyPrompt = "🔑 <b>Add API Key</b>\n\n" +
		"Please enter your ScrapingBee API key:\n\n" +
		"You can cancel this operation using the button below:"

	textIDPrompt = "🗑️ <b>Delete API Key</b>\n\n" +
		"Please enter the API ID you want to delete:\n\n" +
		"You can cancel this operation using the button below:"

	textFetching = "⏳ Fetching HTML code..."

	textNoAPIKey = "❌ <b>No API Key Available</b>\n\n" +
		"Please add ScrapingBee API keys through the admin dashboard first."

	textDownloaded = "📄 <b>HTML file downloaded successfully!</b>\n\nChoose an option:"

	textChooseOption = "Choose an option:"

	textInvalidKey = "❌ Invalid API key format. Please enter a valid ScrapingBee API key."

	textInvalidID = "❌ Invalid API ID. Please enter a numeric ID."

	textIDNotFound = "❌ API ID not found. Please check the ID and try again."

	textNoKeys = "❌ <b>No API Keys Found</b>\n\nNo API keys have been added yet."

	textNoUsers = "❌ <b>No Users Found</b>\n\nNo users have used the bot yet."

	textNoRequests = "❌ <b>No API Requests Found</b>\n\nNo API requests have been made yet."

	textInternalError = "⚠️ Something went wrong while processing your request. Please try again."
)

func dashboardText(s repo.DashboardStats) string {
	return "👑 <b>Admin Dashboard</b>\n\n" +
		"📊 <b>API Key Count:</b> " + count(s.APIKeyCount) + "\n" +
		"📈 <b>Total Requests:</b> " + count(s.TotalRequests) + "\n" +
		"📅 <b>Today's Requests:</b> " + count(s.TodayRequests) + "\n" +
		"👥 <b>Bot Users:</b> " + count(s.UserCount) + "\n\n" +
		"<b>Management Options:</b>"
}

func keyAddedText(id int) string {
	return "✅ <b>API Key Added Successfully!</b>\n\n" +
		"API Key has been added with ID: " + code(fmt.Sprint(id)) + "\n" +
		"The API key is now ready for use."
}

func keyDeletedText(id int) string {
	return "✅ <b>API Key Deleted Successfully!</b>\n\n" +
		"API key with ID " + code(fmt.Sprint(id)) + " has been deleted from the system."
}

func downloadCaption(url, title string) string {
	s := "✅ <b>Successfully downloaded HTML code from:</b>\n" + code(url)
	if title != "" {
		s += "\n📝 " + esc(title)
	}
	return s
}

func upstreamErrorText(status int, body string) string {
	return "❌ <b>Error fetching HTML</b>\n\n" +
		fmt.Sprintf("Status Code: %d\n", status) +
		"Error: " + escLimit(body, errorBodyRunes, errorTextRunes)
}

func transportErrorText(err error) string {
	return "❌ <b>Error occurred:</b>\n\n" + escLimit(err.Error(), errorBodyRunes, errorTextRunes)
}

func apiKeyListText(keys []domain.APIKey) string {
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("#%s - %s - %s",
			code(fmt.Sprint(k.ID)),
			code(utils.TruncateRunes(k.Key, keyPreviewRunes)+"..."),
			esc(k.AddedAt.String()),
		))
	}
	return utils.FitLines("📋 <b>All API Key List</b>\n\n", lines, "", maxMessageRunes)
}

func userListText(users []repo.UserEntry) string {
	shown := users
	if len(shown) > userListLimit {
		shown = shown[:userListLimit]
	}
	lines := make([]string, 0, len(shown))
	for _, u := range shown {
		country := u.Country
		if country == "" {
			country = domain.DefaultCountry
		}
		lines = append(lines, fmt.Sprintf("#%s - %s - Requests: %d - %s - %s",
			code(u.ID), esc(u.DisplayName), u.RequestCount, esc(u.JoinedAt.String()), esc(country)))
	}
	tail := ""
	if more := len(users) - len(shown); more > 0 {
		tail = fmt.Sprintf("\n... and %d more users", more)
	}
	return utils.FitLines("👥 <b>User List</b>\n\n", lines, tail, maxMessageRunes)
}

func requestListText(recent []domain.RequestLogEntry, total int) string {
	lines := make([]string, 0, len(recent))
	for _, r := range recent {
		mark := "❌"
		if r.Status == domain.StatusSuccess {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("#%d %s %s - %s - %s - %s",
			r.ID, mark, esc(string(r.Status)),
			esc(utils.TruncateRunes(r.URL, urlPreviewRunes)+"..."),
			esc(r.UserName), esc(r.Timestamp.String())))
	}
	tail := ""
	if more := total - len(recent); more > 0 {
		tail = fmt.Sprintf("\n... and %d more requests", more)
	}
	return utils.FitLines("📋 <b>API Requests List</b> (Newest First)\n\n", lines, tail, maxMessageRunes)
}

// clip is the last-resort guard against Telegram's length limit. The views
// above bound their own size so markup is never cut here in practice.
func clip(s string) string { return utils.Ellipsize(s, maxMessageRunes) }
