// Package httpapi wires the HTTP transport (Gin) to the bot services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// security headers, and rate limiting.
//
// Routes:
//   - {base}/telegram     Telegram webhook, always answered with 200
//   - {base}/daily-check  reminder sweep, triggered by an external scheduler
//   - /health, /metrics   operational endpoints
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/annual-inspection-bot/internal/config"
	"github.com/tbourn/annual-inspection-bot/internal/http/handlers"
	"github.com/tbourn/annual-inspection-bot/internal/http/middleware"
)

// maxBodyBytes caps every request body. Telegram updates are a few KiB.
const maxBodyBytes = 1 << 20

// Deps are the use cases behind the routes.
type Deps struct {
	Recorder handlers.Recorder
	Daily    handlers.DailyRunner
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
//  7. Security headers
//
// The daily-check route carries its own single-bucket throttle.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery(func(c *gin.Context) {
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal, "internal server error")
	}))

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Recorder, deps.Daily, handlers.Options{
		WebhookTimeout: cfg.WebhookTimeout,
		WebhookSecret:  cfg.Telegram.WebhookSecret,
	})

	dailyLimit := middleware.RouteLimit(cfg.RateRPS, cfg.RateBurst, func(c *gin.Context) {
		handlers.Fail(c, http.StatusTooManyRequests, handlers.ErrCodeRateLimited, "rate limit exceeded")
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Every method is routed so non-POST probes get "OK" instead of 405.
		api.Any("/telegram", h.Webhook)
		api.Any("/daily-check", dailyLimit, h.DailyCheck)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
