package queue

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "notification-workers/internal/common/errors"
)

// Default values applied when the producer omits optional fields.
const (
	DefaultMessageLanguage = "en"
	DefaultPriority        = "normal"
)

// NotificationRequest is the inbound queue message asking for one
// notification to be rendered and delivered. RetryCount is whatever the
// producer stamped on the message; delivery accounting uses the broker's
// own delivery counter instead, so the field is informational.
type NotificationRequest struct {
	MessageID     string                 `json:"message_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	TemplateID    string                 `json:"template_id"`
	TemplateData  map[string]interface{} `json:"template_data,omitempty"`
	Recipient     string                 `json:"recipient"`
	LanguageCode  string                 `json:"language_code,omitempty"`
	Priority      string                 `json:"priority,omitempty"`
	RetryCount    int                    `json:"retry_count,omitempty"`
}

// notificationRequestSchema is the contract enforced before any handler
// sees the message. Schema failures are permanent and never requeued.
var notificationRequestSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"message_id", "template_id", "recipient"},
	"properties": map[string]interface{}{
		"message_id":     map[string]interface{}{"type": "string", "minLength": 1},
		"correlation_id": map[string]interface{}{"type": "string"},
		"user_id":        map[string]interface{}{"type": "string"},
		"template_id":    map[string]interface{}{"type": "string", "minLength": 1},
		"template_data":  map[string]interface{}{"type": "object"},
		"recipient":      map[string]interface{}{"type": "string", "minLength": 1},
		"language_code":  map[string]interface{}{"type": "string"},
		"priority": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"low", "normal", "high"},
		},
		"retry_count": map[string]interface{}{"type": "integer", "minimum": 0},
	},
}

// ParseNotificationRequest decodes and validates a raw message body.
// Invalid JSON and schema violations both surface as MESSAGE_SCHEMA_INVALID
// so the consumer routes them straight to the dead-letter stream.
func ParseNotificationRequest(body []byte) (*NotificationRequest, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewMessageSchemaInvalidError("body is not valid JSON: " + err.Error())
	}

	schemaLoader := gojsonschema.NewGoLoader(notificationRequestSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, apperrors.NewMessageSchemaInvalidError("schema evaluation failed: " + err.Error())
	}
	if !result.Valid() {
		descs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			descs[i] = desc.String()
		}
		return nil, apperrors.NewMessageSchemaInvalidError(strings.Join(descs, "; "))
	}

	var req NotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewMessageSchemaInvalidError("body does not match message shape: " + err.Error())
	}

	req.applyDefaults()
	return &req, nil
}

func (r *NotificationRequest) applyDefaults() {
	if r.LanguageCode == "" {
		r.LanguageCode = DefaultMessageLanguage
	}
	if r.Priority == "" {
		r.Priority = DefaultPriority
	}
	if r.TemplateData == nil {
		r.TemplateData = map[string]interface{}{}
	}
}
