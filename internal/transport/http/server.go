package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"smsink/internal/config"
	"smsink/internal/metrics"
	"smsink/internal/store"
)

// NewServer builds an HTTP server with all routes wired.
func NewServer(st store.Store, rec *metrics.Recorder, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(rec, logger))

	webhook := NewWebhookHandlers(st, rec, cfg.WebhookSecret, logger)
	messages := NewMessageHandlers(st, logger)
	ops := NewOpsHandlers(st, rec, cfg.SecretConfigured(), logger)

	router.POST("/webhook", webhook.Receive)
	router.GET("/messages", messages.List)
	router.GET("/stats", messages.Stats)
	router.GET("/health/live", ops.Live)
	router.GET("/health/ready", ops.Ready)
	router.GET("/metrics", ops.Metrics)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost},
	}).Handler(router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
