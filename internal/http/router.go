// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Platform webhooks exempt from throttling (the platforms retry on 429)
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/agent"
	"github.com/botdo/go-relay-backend/internal/config"
	"github.com/botdo/go-relay-backend/internal/dedup"
	"github.com/botdo/go-relay-backend/internal/dispatch"
	"github.com/botdo/go-relay-backend/internal/http/handlers"
	"github.com/botdo/go-relay-backend/internal/http/middleware"
	"github.com/botdo/go-relay-backend/internal/services"
	"github.com/botdo/go-relay-backend/internal/slack"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. The dispatch pool is injected so the caller owns its lifecycle
// (start before serving, drain on shutdown).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Webhook throttle exemption (before the rate limiter)
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, pool *dispatch.Pool, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Slack signatures and bearer
	// tokens must never reach the logs.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Slack-Signature",
			"Authorization",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Platform webhooks are never throttled: a 429 to Slack triggers its
	// redelivery storm. Flag them before the limiter runs.
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/canales/") {
			middleware.MarkRateBypass(c)
		}
		c.Next()
	})

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Service root and liveness
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": cfg.OTEL.ServiceName,
			"status":  "running",
		})
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: connectors ← clients ← config
	slackClient := slack.NewClient(cfg.Slack.BotToken)
	agentClient := agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.AgentID, cfg.Agent.APIKey)

	relaySvc := &services.RelayService{
		DB:           db,
		Agent:        agentClient,
		HistoryLimit: cfg.HistoryLimit,
		MaxTokens:    cfg.Agent.MaxTokens,
		Temperature:  cfg.Agent.Temperature,
	}
	slackRelay := &services.SlackRelay{
		Slack: slackClient,
		Relay: relaySvc,
	}

	slackConn := &handlers.SlackConnector{
		SigningSecret: cfg.Slack.SigningSecret,
		Dedup:         dedup.New(cfg.Dedup.Capacity, cfg.Dedup.TTL),
		Pool:          pool,
		Relay:         slackRelay,
		Health:        slackClient,
	}
	whapiConn := &handlers.WhapiConnector{Configured: cfg.Whapi.APIKey != ""}
	botH := &handlers.BotHandler{Relay: relaySvc, Agent: agentClient}

	// Platform connectors
	slackGroup := r.Group("/canales/slack")
	{
		slackGroup.POST("/events", slackConn.SlackEvents)
		slackGroup.POST("/send", slackConn.SendSlackMessage)
		slackGroup.GET("/health", slackConn.SlackHealth)
	}
	whapiGroup := r.Group("/canales/whapi")
	{
		whapiGroup.POST("/events", whapiConn.WhapiEvents)
		whapiGroup.POST("/send", whapiConn.WhapiSend)
		whapiGroup.GET("/health", whapiConn.WhapiHealth)
	}

	// Direct processing
	botGroup := r.Group("/bot")
	{
		botGroup.POST("/process", botH.ProcessMessage)
		botGroup.GET("/health", botH.BotHealth)
	}

	// Admin API (static bearer token)
	adminH := &handlers.AdminHandler{DB: db}
	admin := groupWithPrefix(r, cfg.APIBasePath)
	admin.Use(middleware.AdminAuth(cfg.AdminToken))
	{
		admin.GET("/messages", adminH.ListMessages)
		admin.GET("/messages/:id", adminH.GetMessage)
		admin.GET("/users", adminH.ListUsers)
		admin.POST("/users", adminH.CreateUser)
		admin.GET("/channels", adminH.ListChannels)
		admin.POST("/channels", adminH.CreateChannel)
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
