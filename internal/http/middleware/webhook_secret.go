package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookSecret rejects requests whose X-Telegram-Bot-Api-Secret-Token header
// does not match secret with 401. An empty secret disables the check.
func WebhookSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderTelegramSecret))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			LoggerFrom(c).Warn().Msg("webhook secret mismatch")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "unauthorized",
				"message":    "invalid webhook secret",
			})
			return
		}
		c.Next()
	}
}
