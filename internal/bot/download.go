package bot

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/tbourn/html-downloader-bot/internal/services"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

// Telegram's limit for document captions.
const maxCaptionRunes = 1024

const textDownloadedShort = "✅ <b>Successfully downloaded HTML code</b>"

// download runs the URL reply: a progress notice, the fetch, then either the
// file or an error report. The pending state is cleared on every path.
func (c *Controller) download(ctx context.Context, here screen, user *telegram.User, text string) error {
	defer c.sessions.Clear(user.ID)

	notice, err := c.msg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID: here.chatID,
		Text:   textFetching,
	})
	if err != nil {
		return err
	}
	progress := screen{chatID: here.chatID, messageID: notice.MessageID}

	d, err := c.downloads.Download(ctx, services.Requester{UserID: user.ID, Name: user.FullName()}, text)

	var upstream *services.UpstreamError
	var transport *services.TransportError
	switch {
	case errors.Is(err, services.ErrNoAPIKeys):
		if err := c.render(ctx, progress, textNoAPIKey, nil); err != nil {
			return err
		}
		return c.showMainMenu(ctx, here.fresh(), user.ID)
	case errors.As(err, &upstream):
		return c.reportFailure(ctx, progress, upstreamErrorText(upstream.StatusCode, upstream.Body))
	case errors.As(err, &transport):
		return c.reportFailure(ctx, progress, transportErrorText(transport.Err))
	case err != nil:
		return err
	}

	caption := downloadCaption(d.URL, d.Title)
	if utf8.RuneCountInString(caption) > maxCaptionRunes {
		caption = textDownloadedShort
	}
	if _, err := c.msg.SendDocument(ctx, telegram.SendDocumentParams{
		ChatID:    here.chatID,
		Filename:  d.Filename,
		Data:      d.Body,
		Caption:   caption,
		ParseMode: parseModeHTML,
	}); err != nil {
		return err
	}
	return c.render(ctx, here.fresh(), textDownloaded, afterDownloadKeyboard())
}

// reportFailure replaces the progress notice with the error and offers a
// retry.
func (c *Controller) reportFailure(ctx context.Context, progress screen, text string) error {
	if err := c.render(ctx, progress, text, nil); err != nil {
		return err
	}
	return c.render(ctx, progress.fresh(), textChooseOption, retryKeyboard())
}
