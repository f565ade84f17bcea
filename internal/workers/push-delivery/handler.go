// internal/workers/push-delivery/handler.go
package pushdelivery

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"notification-workers/internal/audit"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/queue"
	"notification-workers/internal/template"
)

const TaskType = "push-delivery"

// SNSService is the SNS surface the handler needs, mockable in tests.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TemplateRenderer resolves and renders a template for one request.
type TemplateRenderer interface {
	Render(ctx context.Context, templateID, language string, data map[string]interface{}) (*template.RenderResult, error)
}

// Auditor records delivery outcomes. Failures are logged, never propagated.
type Auditor interface {
	Record(ctx context.Context, outcome audit.DeliveryOutcome) error
}

// Handler renders and sends push notifications through SNS. The recipient
// is a platform endpoint ARN; anything else is published as a raw target.
type Handler struct {
	config   *Config
	renderer TemplateRenderer
	sns      SNSService
	auditor  Auditor
	logger   logger.Logger
}

func NewHandler(config *Config, renderer TemplateRenderer, snsClient SNSService, auditor Auditor, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		renderer: renderer,
		sns:      snsClient,
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

	if err := h.publish(ctx, req.Recipient, result.Subject, result.Body); err != nil {
		h.logger.Error("push send failed", map[string]interface{}{
			"message_id": req.MessageID,
			"error":      err.Error(),
		})
		sendErr := apperrors.NewNotificationSendFailedError(Channel, err)
		h.recordOutcome(req, result.Language, StatusFailed, sendErr, start)
		return sendErr
	}

	h.logger.Info("push delivered", map[string]interface{}{
		"message_id":  req.MessageID,
		"template_id": req.TemplateID,
		"language":    result.Language,
		"version":     result.Version,
	})
	h.recordOutcome(req, result.Language, StatusDelivered, nil, start)
	return nil
}

func (h *Handler) publish(ctx context.Context, recipient, subject, body string) error {
	input := &sns.PublishInput{
		Message: aws.String(body),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	if strings.HasPrefix(recipient, "arn:") {
		input.TargetArn = aws.String(recipient)
	} else {
		input.PhoneNumber = aws.String(recipient)
	}

	_, err := h.sns.Publish(ctx, input)
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

	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.auditor.Record(auditCtx, outcome); err != nil {
		h.logger.Warn("audit record failed", map[string]interface{}{
			"message_id": req.MessageID,
			"error":      err.Error(),
		})
	}
}

func statusFor(err error) string {
	if apperrors.IsRetryable(err) {
		return StatusFailed
	}
	return StatusDeadLettered
}
