// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets the response headers shared by every endpoint. The bot only
// answers with JSON or plain text (Telegram, health checks, the stats API),
// so framing and content sniffing are refused everywhere.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultHSTSMaxAge applies when HSTS is enabled without a max age.
const DefaultHSTSMaxAge = 180 * 24 * time.Hour

var baseSecurityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
}

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only,
	// including those a proxy marks with X-Forwarded-Proto: https.
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// SecurityHeaders sets the shared headers and, when enabled, HSTS.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	hsts := ""
	if opt.EnableHSTS {
		age := opt.HSTSMaxAge
		if age <= 0 {
			age = DefaultHSTSMaxAge
		}
		hsts = "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range baseSecurityHeaders {
			h.Set(kv[0], kv[1])
		}
		if hsts != "" && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// CacheControl sets Cache-Control on the routes it guards: "no-store" for
// webhook acknowledgements, "no-cache" for the ETag-validated stats.
func CacheControl(value string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
