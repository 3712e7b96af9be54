// Package httpapi wires the HTTP transport (Gin) to the bot: the Telegram
// webhook intake, liveness and health probes, Prometheus metrics and the
// read-only stats API. It centralizes cross-cutting concerns such as
// tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// rate limiting, CORS and security headers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/html-downloader-bot/docs"
	"github.com/tbourn/html-downloader-bot/internal/config"
	"github.com/tbourn/html-downloader-bot/internal/http/handlers"
	"github.com/tbourn/html-downloader-bot/internal/http/middleware"
)

// maxBodyBytes caps request bodies. Telegram updates are far smaller.
const maxBodyBytes = 1 << 20

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Queue    handlers.UpdateQueue
	Stats    handlers.StatsReader
	Sessions handlers.SessionCounter
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP)
//  8. Security headers
//
// CORS and gzip apply to the stats API group only.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET(middleware.MetricsPath, gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Bot is running!") })
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(d.Queue, d.Stats, d.Sessions)
	r.POST("/webhook",
		middleware.CacheControl("no-store"),
		middleware.WebhookSecret(cfg.Telegram.WebhookSecret),
		h.Webhook,
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(middleware.CacheControl("no-cache"))
	{
		api.GET("/stats", h.Stats)
	}

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsMiddleware allows every origin when allowed is empty; otherwise it
// echoes allowlisted origins.
func corsMiddleware(allowed []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Accept", "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowed) == 0 {
		base.AllowAllOrigins = true
		// ACAO even without an Origin header, for simple probes
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	base.AllowOrigins = allowed
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := set[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
