package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smsink/internal/message"
	"smsink/internal/metrics"
	"smsink/internal/store"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Signature"

// Webhook outcome labels. Each delivery terminates in exactly one of them.
const (
	resultCreated          = "created"
	resultDuplicate        = "duplicate"
	resultInvalidSignature = "invalid_signature"
	resultValidationError  = "validation_error"
)

// DetailResponse is the body shape for rejected webhook deliveries.
type DetailResponse struct {
	Detail any `json:"detail"`
}

// WebhookHandlers provides the webhook ingestion endpoint.
type WebhookHandlers struct {
	store    store.Store
	metrics  *metrics.Recorder
	secret   string
	validate *message.Validator
	log      *zerolog.Logger
}

// NewWebhookHandlers creates a new webhook handlers instance.
func NewWebhookHandlers(st store.Store, rec *metrics.Recorder, secret string, logger *zerolog.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		store:    st,
		metrics:  rec,
		secret:   secret,
		validate: message.NewValidator(),
		log:      logger,
	}
}

// Receive handles POST /webhook. The steps run strictly in order: signature
// verification over the raw body, JSON parse, schema validation, idempotent
// insert. A duplicate insert is a successful outcome, not an error.
func (h *WebhookHandlers) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Debug().Err(err).Msg("failed to read webhook body")
		raw = nil
	}

	// Signature verification happens before any payload validation. The
	// message id below is a best-effort extraction for the log record only.
	sig := c.GetHeader(signatureHeader)
	if h.secret == "" || sig == "" || !signatureValid(h.secret, raw, sig) {
		h.finish(c, WebhookLogFields{
			MessageID: message.BestEffortID(raw),
			Result:    resultInvalidSignature,
		})
		c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "invalid signature"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.finish(c, WebhookLogFields{Result: resultValidationError})
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: []message.FieldError{
			{Loc: []string{"body"}, Msg: "Invalid JSON", Type: "value_error.jsondecode"},
		}})
		return
	}

	var in message.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.finish(c, WebhookLogFields{
			MessageID: message.IDFromPayload(payload),
			Result:    resultValidationError,
		})
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: decodeErrors(err)})
		return
	}

	if errs := h.validate.Validate(&in); len(errs) > 0 {
		h.finish(c, WebhookLogFields{
			MessageID: message.IDFromPayload(payload),
			Result:    resultValidationError,
		})
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: errs})
		return
	}

	msg := &store.Message{
		MessageID:  in.MessageID,
		FromMSISDN: in.From,
		ToMSISDN:   in.To,
		TS:         in.TS,
		Text:       in.Text,
	}
	res, err := h.store.Insert(c.Request.Context(), msg)
	if err != nil {
		h.log.Error().Err(err).Str("message_id", in.MessageID).Msg("failed to insert message")
		c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "internal server error"})
		return
	}

	result := resultCreated
	if res.Duplicate {
		result = resultDuplicate
	}
	h.finish(c, WebhookLogFields{
		MessageID: &in.MessageID,
		Dup:       res.Duplicate,
		Result:    result,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// finish records the outcome for the request log record and increments the
// webhook result counter. Every terminal branch calls it exactly once.
func (h *WebhookHandlers) finish(c *gin.Context, fields WebhookLogFields) {
	c.Set(contextKeyWebhookFields, fields)
	h.metrics.IncWebhook(fields.Result)
}

func signatureValid(secret string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	digest := hex.EncodeToString(mac.Sum(nil))

	provided = strings.ToLower(strings.TrimSpace(provided))
	return hmac.Equal([]byte(digest), []byte(provided))
}

func decodeErrors(err error) []message.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []message.FieldError{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "Input should be a valid string",
			Type: "string_type",
		}}
	}
	return []message.FieldError{{Loc: []string{"body"}, Msg: "Invalid JSON", Type: "value_error.jsondecode"}}
}
