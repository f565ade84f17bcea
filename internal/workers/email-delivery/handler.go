// internal/workers/email-delivery/handler.go
package emaildelivery

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"notification-workers/internal/audit"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/queue"
	"notification-workers/internal/template"
)

const TaskType = "email-delivery"

// SESService is the SES surface the handler needs, mockable in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// TemplateRenderer resolves and renders a template for one request.
type TemplateRenderer interface {
	Render(ctx context.Context, templateID, language string, data map[string]interface{}) (*template.RenderResult, error)
}

// Auditor records delivery outcomes. Failures are logged, never propagated.
type Auditor interface {
	Record(ctx context.Context, outcome audit.DeliveryOutcome) error
}

// Handler renders and sends email notifications. Render failures are
// permanent and dead-letter the message; send failures are retryable and
// leave it queued for another delivery.
type Handler struct {
	config   *Config
	renderer TemplateRenderer
	ses      SESService
	auditor  Auditor
	logger   logger.Logger
}

func NewHandler(config *Config, renderer TemplateRenderer, sesClient SESService, auditor Auditor, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		renderer: renderer,
		ses:      sesClient,
		auditor:  auditor,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(ctx context.Context, req *queue.NotificationRequest) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := h.renderer.Render(ctx, req.TemplateID, req.LanguageCode, req.TemplateData)
	if err != nil {
		h.recordOutcome(req, "", statusFor(err), err, start)
		return err
	}

	if err := h.sendEmail(ctx, req.Recipient, result.Subject, result.Body); err != nil {
		h.logger.Error("email send failed", map[string]interface{}{
			"message_id": req.MessageID,
			"recipient":  req.Recipient,
			"error":      err.Error(),
		})
		sendErr := apperrors.NewNotificationSendFailedError(Channel, err)
		h.recordOutcome(req, result.Language, StatusFailed, sendErr, start)
		return sendErr
	}

	h.logger.Info("email delivered", map[string]interface{}{
		"message_id":  req.MessageID,
		"template_id": req.TemplateID,
		"language":    result.Language,
		"version":     result.Version,
	})
	h.recordOutcome(req, result.Language, StatusDelivered, nil, start)
	return nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) recordOutcome(req *queue.NotificationRequest, language, status string, cause error, start time.Time) {
	if h.auditor == nil {
		return
	}

	outcome := audit.DeliveryOutcome{
		MessageID:     req.MessageID,
		UserID:        req.UserID,
		TemplateID:    req.TemplateID,
		Recipient:     req.Recipient,
		Channel:       Channel,
		Language:      language,
		Status:        status,
		CorrelationID: req.CorrelationID,
		DurationMs:    time.Since(start).Milliseconds(),
	}
	if cause != nil {
		outcome.Error = cause.Error()
	}

	// Audit uses its own context so a cancelled delivery still records.
	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.auditor.Record(auditCtx, outcome); err != nil {
		h.logger.Warn("audit record failed", map[string]interface{}{
			"message_id": req.MessageID,
			"error":      err.Error(),
		})
	}
}

// statusFor distinguishes permanent render failures, which dead-letter,
// from everything else.
func statusFor(err error) string {
	if apperrors.IsRetryable(err) {
		return StatusFailed
	}
	return StatusDeadLettered
}
