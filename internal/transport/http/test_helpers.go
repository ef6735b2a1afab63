package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smsink/internal/config"
	"smsink/internal/metrics"
	"smsink/internal/store"
	"smsink/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	return st
}

// createTestServer wires a server around an in-memory store. An empty secret
// leaves the webhook gate closed.
func createTestServer(t *testing.T, secret string) (*stdhttp.Server, store.Store, *metrics.Recorder) {
	t.Helper()

	st := createTestStore(t)
	rec := metrics.NewRecorder()
	disabledLogger := zerolog.New(nil)

	cfg := config.Config{
		Addr:              ":0",
		WebhookSecret:     secret,
		AllowedOrigins:    []string{"*"},
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}

	return NewServer(st, rec, &cfg, &disabledLogger), st, rec
}

// sign computes the hex HMAC-SHA256 signature the webhook endpoint expects.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
