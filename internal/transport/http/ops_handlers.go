package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smsink/internal/metrics"
	"smsink/internal/store"
)

// metricsContentType is the Prometheus text exposition content type.
const metricsContentType = "text/plain; version=0.0.4"

// OpsHandlers provides health probes and the metrics endpoint.
type OpsHandlers struct {
	store     store.Store
	metrics   *metrics.Recorder
	secretSet bool
	log       *zerolog.Logger
}

// NewOpsHandlers creates a new ops handlers instance.
func NewOpsHandlers(st store.Store, rec *metrics.Recorder, secretSet bool, logger *zerolog.Logger) *OpsHandlers {
	return &OpsHandlers{
		store:     st,
		metrics:   rec,
		secretSet: secretSet,
		log:       logger,
	}
}

// Live handles GET /health/live. It always succeeds while the process runs.
func (h *OpsHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}

// Ready handles GET /health/ready. Ready requires a configured secret, a
// reachable store and a present schema.
func (h *OpsHandlers) Ready(c *gin.Context) {
	if !h.secretSet {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	ok, err := h.store.SchemaPresent(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Metrics handles GET /metrics.
func (h *OpsHandlers) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, metricsContentType, []byte(h.metrics.RenderText()))
}
