package message

import (
	"encoding/json"
	"regexp"
)

// MSISDNPattern matches E.164-like phone numbers: a leading + and digits.
var MSISDNPattern = regexp.MustCompile(`^\+[0-9]+$`)

// TimestampPattern matches second-precision UTC ISO-8601 timestamps with a
// literal Z suffix. Calendar correctness beyond the shape is not checked.
var TimestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`)

// MaxTextLength is the upper bound on the optional text field.
const MaxTextLength = 4096

// Inbound is the webhook delivery payload.
type Inbound struct {
	MessageID string  `json:"message_id" validate:"required"`
	From      string  `json:"from" validate:"required,msisdn"`
	To        string  `json:"to" validate:"required,msisdn"`
	TS        string  `json:"ts" validate:"required,utcts"`
	Text      *string `json:"text" validate:"omitempty,max=4096"`
}

// BestEffortID extracts message_id from a raw body when it happens to be a
// JSON object with a string message_id. Used only for log records on
// rejected requests.
func BestEffortID(raw []byte) *string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return IDFromPayload(payload)
}

// IDFromPayload extracts a string message_id from an already parsed object.
func IDFromPayload(payload map[string]any) *string {
	if id, ok := payload["message_id"].(string); ok {
		return &id
	}
	return nil
}
