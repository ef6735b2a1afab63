package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smsink/internal/metrics"
)

const (
	// contextKeyRequestID is the gin context key for the request id.
	contextKeyRequestID = "request_id"
	// contextKeyWebhookFields is the gin context key the webhook handler uses
	// to hand its outcome fields to the request log record.
	contextKeyWebhookFields = "webhook_log_fields"
)

// WebhookLogFields carries the per-delivery outcome into the request log record.
type WebhookLogFields struct {
	MessageID *string
	Dup       bool
	Result    string
}

// RequestLogger assigns a request id, updates the HTTP counters and latency
// histogram, and emits exactly one structured log record per request. Webhook
// outcome fields set by the handler are merged into that record.
func RequestLogger(rec *metrics.Recorder, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set(contextKeyRequestID, requestID)
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path

		rec.IncHTTP(path, status)
		rec.ObserveLatency(latency.Seconds())

		evt := logger.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int64("latency_ms", latency.Milliseconds())

		if v, ok := c.Get(contextKeyWebhookFields); ok {
			if wf, ok := v.(WebhookLogFields); ok {
				if wf.MessageID != nil {
					evt = evt.Str("message_id", *wf.MessageID)
				} else {
					evt = evt.Interface("message_id", nil)
				}
				evt = evt.Bool("dup", wf.Dup).Str("result", wf.Result)
			}
		}

		evt.Msg("request")
	}
}
