// Package bot implements the conversation controller: it turns Telegram
// updates into state transitions, store operations and replies.
//
// Updates must be handled one at a time; the transport dispatcher takes care
// of that. The store and session tracker are passed in explicitly.
package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/html-downloader-bot/internal/domain"
	"github.com/tbourn/html-downloader-bot/internal/observability"
	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/internal/services"
	"github.com/tbourn/html-downloader-bot/internal/session"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

const parseModeHTML = "HTML"

// Update kinds used as the "kind" metric label.
const (
	kindCommand  = "command"
	kindMessage  = "message"
	kindCallback = "callback"
	kindOther    = "other"
)

// Messenger is the part of the Telegram client the controller talks to.
type Messenger interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, p telegram.EditMessageTextParams) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	SendDocument(ctx context.Context, p telegram.SendDocumentParams) (*telegram.Message, error)
}

// Deps are the controller's collaborators.
type Deps struct {
	Messenger Messenger
	Store     *repo.Store
	Sessions  *session.Tracker
	Downloads *services.DownloadService
}

// Controller runs the per-user state machine.
type Controller struct {
	msg       Messenger
	store     *repo.Store
	sessions  *session.Tracker
	keys      *services.KeyService
	downloads *services.DownloadService
	tracer    trace.Tracer
}

// NewController wires a controller from its dependencies.
func NewController(d Deps) *Controller {
	return &Controller{
		msg:       d.Messenger,
		store:     d.Store,
		sessions:  d.Sessions,
		keys:      &services.KeyService{Store: d.Store},
		downloads: d.Downloads,
		tracer:    observability.Tracer("internal/bot"),
	}
}

// screen is where a reply goes: a new message in chatID, or an edit of
// messageID when it is non-zero.
type screen struct {
	chatID    int64
	messageID int
}

func (s screen) fresh() screen { return screen{chatID: s.chatID} }

func updateKind(u telegram.Update) string {
	switch {
	case u.CallbackQuery != nil:
		return kindCallback
	case u.Message != nil && u.Message.Command() != "":
		return kindCommand
	case u.Message != nil:
		return kindMessage
	default:
		return kindOther
	}
}

// HandleUpdate processes one update. Errors are those of the Telegram calls;
// user mistakes are answered in the chat and never returned.
func (c *Controller) HandleUpdate(ctx context.Context, u telegram.Update) error {
	kind := updateKind(u)
	observability.UpdatesTotal.WithLabelValues(kind).Inc()

	ctx, span := c.tracer.Start(ctx, "bot.HandleUpdate", trace.WithAttributes(
		attribute.Int64("telegram.update_id", u.UpdateID),
		attribute.String("telegram.update_kind", kind),
	))
	defer span.End()

	var err error
	switch {
	case u.CallbackQuery != nil:
		err = c.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		err = c.handleMessage(ctx, u.Message)
	default:
		log.Debug().Int64("update_id", u.UpdateID).Msg("ignoring update without message or callback")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// NotifyFailure tells the originating chat that its update could not be
// processed.
func (c *Controller) NotifyFailure(ctx context.Context, u telegram.Update) error {
	var chatID int64
	switch {
	case u.Message != nil:
		chatID = u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		chatID = u.CallbackQuery.Message.Chat.ID
	case u.CallbackQuery != nil:
		chatID = u.CallbackQuery.From.ID
	default:
		return nil
	}
	return c.render(ctx, screen{chatID: chatID}, textInternalError, nil)
}

func (c *Controller) handleMessage(ctx context.Context, m *telegram.Message) error {
	user := m.From
	c.store.RecordUserSeen(ctx, user.ID, user.FullName(), "")
	here := screen{chatID: m.Chat.ID}

	if cmd := m.Command(); cmd != "" {
		if cmd == "start" {
			return c.start(ctx, here, user)
		}
		log.Debug().Int64("user_id", user.ID).Str("command", cmd).Msg("ignoring unknown command")
		return nil
	}
	if m.Text == "" {
		return nil
	}

	state, pending := c.sessions.Get(user.ID)
	if !pending {
		return c.showMainMenu(ctx, here, user.ID)
	}
	switch state {
	case domain.StateAwaitingURL:
		return c.download(ctx, here, user, m.Text)
	case domain.StateAwaitingAPIKey:
		return c.submitAPIKey(ctx, here, user.ID, m.Text)
	case domain.StateAwaitingAPIID:
		return c.submitAPIID(ctx, here, user.ID, m.Text)
	default:
		c.sessions.Clear(user.ID)
		return c.showMainMenu(ctx, here, user.ID)
	}
}

func (c *Controller) start(ctx context.Context, here screen, user *telegram.User) error {
	if c.store.ClaimAdmin(ctx, user.ID) {
		log.Info().Int64("user_id", user.ID).Msg("admin claimed")
		if err := c.render(ctx, here, textAdminClaimed, nil); err != nil {
			return err
		}
	}
	return c.showMainMenu(ctx, here, user.ID)
}

func (c *Controller) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	if err := c.msg.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		log.Warn().Err(err).Str("callback_id", q.ID).Msg("answer callback failed")
	}

	userID := q.From.ID
	c.store.RecordUserSeen(ctx, userID, q.From.FullName(), "")

	here := screen{chatID: userID}
	if q.Message != nil {
		here = screen{chatID: q.Message.Chat.ID, messageID: q.Message.MessageID}
	}

	if adminOnly[q.Data] && !c.store.IsAdmin(userID) {
		log.Debug().Int64("user_id", userID).Str("action", q.Data).Msg("ignoring admin action from non-admin")
		return nil
	}

	switch q.Data {
	case ActionStartDownload, ActionNewDownload:
		c.sessions.Set(userID, domain.StateAwaitingURL)
		return c.render(ctx, here, textURLPrompt, cancelKeyboard())
	case ActionAdminDashboard, ActionBackToDashboard:
		return c.showDashboard(ctx, here)
	case ActionAddAPIKey:
		c.sessions.Set(userID, domain.StateAwaitingAPIKey)
		return c.render(ctx, here, textKeyPrompt, cancelKeyboard())
	case ActionDeleteAPIKey:
		c.sessions.Set(userID, domain.StateAwaitingAPIID)
		return c.render(ctx, here, textIDPrompt, cancelKeyboard())
	case ActionAPIKeyList:
		return c.showAPIKeys(ctx, here)
	case ActionUserList:
		return c.showUsers(ctx, here)
	case ActionRequestsList:
		return c.showRequests(ctx, here)
	case ActionBackToMain:
		return c.showMainMenu(ctx, here, userID)
	case ActionCancel:
		c.sessions.Clear(userID)
		return c.showHome(ctx, here, userID)
	default:
		log.Debug().Int64("user_id", userID).Str("action", q.Data).Msg("ignoring unknown callback")
		return nil
	}
}

func (c *Controller) showMainMenu(ctx context.Context, here screen, userID int64) error {
	return c.render(ctx, here, textMainMenu, mainMenuKeyboard(c.store.IsAdmin(userID)))
}

// showHome shows the dashboard to the admin and the main menu to everyone
// else.
func (c *Controller) showHome(ctx context.Context, here screen, userID int64) error {
	if c.store.IsAdmin(userID) {
		return c.showDashboard(ctx, here)
	}
	return c.showMainMenu(ctx, here, userID)
}

// render sends or edits a message. Editing a message into identical content
// is not an error.
func (c *Controller) render(ctx context.Context, to screen, text string, kb *telegram.InlineKeyboardMarkup) error {
	text = clip(text)
	if to.messageID == 0 {
		_, err := c.msg.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:      to.chatID,
			Text:        text,
			ParseMode:   parseModeHTML,
			ReplyMarkup: kb,
		})
		return err
	}
	err := c.msg.EditMessageText(ctx, telegram.EditMessageTextParams{
		ChatID:      to.chatID,
		MessageID:   to.messageID,
		Text:        text,
		ParseMode:   parseModeHTML,
		ReplyMarkup: kb,
	})
	if telegram.IsNotModified(err) {
		return nil
	}
	return err
}
