// Package telegram is a minimal Telegram Bot API client covering what the
// bot needs: long polling, webhooks, text messages with inline keyboards,
// message edits, callback answers and document uploads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Request timeouts. Long polls get the server timeout plus pollGrace.
const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 60 * time.Second
	pollGrace      = 10 * time.Second
)

// Client is a minimal Telegram Bot API client.
type Client struct {
	token   string
	baseURL string
	http    *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Bot API server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// NewClient returns a client for the bot identified by token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{token: token, baseURL: DefaultBaseURL, http: resty.New()}
	for _, o := range opts {
		o(c)
	}
	c.http.SetRetryCount(0)
	return c
}

func (c *Client) url(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call posts a JSON payload and decodes the result into out (may be nil).
func (c *Client) call(ctx context.Context, method string, payload any, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if payload != nil {
		req.SetBody(payload)
	}
	res, err := req.Post(c.url(method))
	if err != nil {
		return c.redact(method, err)
	}
	return decode(method, res, out)
}

func decode(method string, res *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return fmt.Errorf("telegram: %s: status %d: %w", method, res.StatusCode(), err)
	}
	if !env.OK {
		ae := &APIError{Code: env.ErrorCode, Description: env.Description}
		if ae.Code == 0 {
			ae.Code = res.StatusCode()
		}
		if env.Parameters != nil {
			ae.RetryAfter = env.Parameters.RetryAfter
		}
		return ae
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("telegram: %s: decode result: %w", method, err)
	}
	return nil
}

// redact replaces the request URL, which embeds the bot token, with the
// method name.
func (c *Client) redact(method string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: "telegram/" + method, Err: ue.Err}
	}
	return fmt.Errorf("telegram: %s: %w", method, err)
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u, defaultTimeout); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates with ids >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	if offset != 0 {
		payload["offset"] = offset
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates, timeout+pollGrace); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessageParams are the arguments of sendMessage.
type SendMessageParams struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) (*Message, error) {
	var m Message
	if err := c.call(ctx, "sendMessage", p, &m, defaultTimeout); err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMessageTextParams are the arguments of editMessageText.
type EditMessageTextParams struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int                   `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText replaces the text (and keyboard) of a sent message.
func (c *Client) EditMessageText(ctx context.Context, p EditMessageTextParams) error {
	return c.call(ctx, "editMessageText", p, nil, defaultTimeout)
}

// AnswerCallbackQuery acknowledges a button press. text may be empty.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil, defaultTimeout)
}

// SendDocumentParams are the arguments of sendDocument.
type SendDocumentParams struct {
	ChatID      int64
	Filename    string
	Data        []byte
	Caption     string
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

// SendDocument uploads Data as a file attachment.
func (c *Client) SendDocument(ctx context.Context, p SendDocumentParams) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	form := map[string]string{"chat_id": strconv.FormatInt(p.ChatID, 10)}
	if p.Caption != "" {
		form["caption"] = p.Caption
	}
	if p.ParseMode != "" {
		form["parse_mode"] = p.ParseMode
	}
	if p.ReplyMarkup != nil {
		b, err := json.Marshal(p.ReplyMarkup)
		if err != nil {
			return nil, err
		}
		form["reply_markup"] = string(b)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(form).
		SetFileReader("document", p.Filename, bytes.NewReader(p.Data)).
		Post(c.url("sendDocument"))
	if err != nil {
		return nil, c.redact("sendDocument", err)
	}
	var m Message
	if err := decode("sendDocument", res, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetWebhook registers url as the update endpoint. A non-empty secret is
// echoed by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	payload := map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload, nil, defaultTimeout)
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil, defaultTimeout)
}

// SetMyCommands registers the bot commands shown in the Telegram UI.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	return c.call(ctx, "setMyCommands", map[string]any{"commands": commands}, nil, defaultTimeout)
}
