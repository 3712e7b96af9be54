package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/html-downloader-bot/internal/http/middleware"
	"github.com/tbourn/html-downloader-bot/internal/transport"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

// queueRetryAfter is the back-off suggested when the update queue is full.
// Telegram redelivers any non-2xx answer.
const queueRetryAfter = time.Second

// Webhook godoc
// @ID          telegramWebhook
// @Summary     Receive a Telegram update
// @Description Accepts one update pushed by Telegram and queues it for processing. Answers before the update is handled.
// @Tags        Telegram
// @Accept      json
// @Produce     plain
// @Param       X-Telegram-Bot-Api-Secret-Token  header  string           false  "Secret configured with setWebhook"
// @Param       body                             body    telegram.Update  true   "Telegram update"
// @Success     200  {string}  string                  "OK"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed update"
// @Failure     401  {object}  handlers.ErrorResponse  "Secret mismatch"
// @Failure     503  {object}  handlers.ErrorResponse  "Update queue is full"
// @Router      /webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	var u telegram.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update payload")
		return
	}
	if u.UpdateID == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "update_id is required")
		return
	}

	if err := h.queue.Enqueue(u); err != nil {
		if errors.Is(err, transport.ErrQueueFull) {
			unavailable(c, queueRetryAfter, ErrCodeQueueFull, "update queue is full")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not queue update")
		return
	}

	middleware.LoggerFrom(c).Debug().
		Int64("update_id", u.UpdateID).
		Int("pending", h.queue.Pending()).
		Msg("update queued")
	c.String(http.StatusOK, "OK")
}
