// Package handlers serves the Telegram webhook and the read-only stats API.
//
// Errors are written as an ErrorResponse with a stable code. Telegram only
// looks at the status (any non-2xx is redelivered), the body is for operators
// reading logs and for dashboard clients.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/html-downloader-bot/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code    string `json:"code" example:"queue_full"`
	Message string `json:"message" example:"update queue is full"`
}

// fail aborts with an ErrorResponse. 503 is expected backpressure and logged
// at warn; other 5xx are logged at error.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		ev := lg.Error()
		if status == http.StatusServiceUnavailable {
			ev = lg.Warn()
		}
		ev.Int("status", status).Str("code", code).Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for the router's fallback handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// unavailable answers 503 with Retry-After so the sender backs off before
// redelivering.
func unavailable(c *gin.Context, retryAfter time.Duration, code, msg string) {
	secs := int(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	fail(c, http.StatusServiceUnavailable, code, msg)
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
