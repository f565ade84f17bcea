// internal/workers/push-delivery/handler_test.go
package pushdelivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-workers/internal/audit"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/queue"
	"notification-workers/internal/template"
)

type mockSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

type mockRenderer struct {
	result *template.RenderResult
	err    error
}

func (m *mockRenderer) Render(_ context.Context, _, _ string, _ map[string]interface{}) (*template.RenderResult, error) {
	return m.result, m.err
}

type mockAuditor struct {
	mu       sync.Mutex
	outcomes []audit.DeliveryOutcome
}

func (m *mockAuditor) Record(_ context.Context, outcome audit.DeliveryOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func testRequest(recipient string) *queue.NotificationRequest {
	return &queue.NotificationRequest{
		MessageID:    "msg-1",
		TemplateID:   "payment-due",
		Recipient:    recipient,
		LanguageCode: "en",
		TemplateData: map[string]interface{}{"amount": "42.50"},
		Priority:     "high",
	}
}

func newTestHandler(t *testing.T, renderer TemplateRenderer, snsClient SNSService, auditor Auditor) *Handler {
	return NewHandler(LoadConfig(), renderer, snsClient, auditor, logger.NewTestLogger(t))
}

func TestHandler_Handle_EndpointArn(t *testing.T) {
	snsClient := &mockSNS{}
	auditor := &mockAuditor{}
	renderer := &mockRenderer{result: &template.RenderResult{
		Language: "en",
		Version:  "1.0.0",
		Subject:  "Payment due",
		Body:     "You owe 42.50",
	}}

	handler := newTestHandler(t, renderer, snsClient, auditor)
	arn := "arn:aws:sns:eu-west-1:123456789012:endpoint/GCM/app/token"
	err := handler.Handle(context.Background(), testRequest(arn))
	require.NoError(t, err)

	require.Len(t, snsClient.inputs, 1)
	input := snsClient.inputs[0]
	assert.Equal(t, arn, *input.TargetArn)
	assert.Nil(t, input.PhoneNumber)
	assert.Equal(t, "You owe 42.50", *input.Message)
	assert.Equal(t, "Payment due", *input.Subject)

	require.Len(t, auditor.outcomes, 1)
	assert.Equal(t, StatusDelivered, auditor.outcomes[0].Status)
}

func TestHandler_Handle_PhoneNumberFallback(t *testing.T) {
	snsClient := &mockSNS{}
	renderer := &mockRenderer{result: &template.RenderResult{Language: "en", Body: "ping"}}

	handler := newTestHandler(t, renderer, snsClient, nil)
	err := handler.Handle(context.Background(), testRequest("+4915112345678"))
	require.NoError(t, err)

	require.Len(t, snsClient.inputs, 1)
	input := snsClient.inputs[0]
	assert.Equal(t, "+4915112345678", *input.PhoneNumber)
	assert.Nil(t, input.TargetArn)
	assert.Nil(t, input.Subject, "no subject when the template has none")
}

func TestHandler_Handle_RenderFailurePropagates(t *testing.T) {
	snsClient := &mockSNS{}
	auditor := &mockAuditor{}
	renderer := &mockRenderer{err: apperrors.NewMissingVariablesError([]string{"amount"})}

	handler := newTestHandler(t, renderer, snsClient, auditor)
	err := handler.Handle(context.Background(), testRequest("+4915112345678"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingVariables, apperrors.CodeOf(err))
	assert.Empty(t, snsClient.inputs)

	require.Len(t, auditor.outcomes, 1)
	assert.Equal(t, StatusDeadLettered, auditor.outcomes[0].Status)
}

func TestHandler_Handle_SendFailureIsRetryable(t *testing.T) {
	snsClient := &mockSNS{err: errors.New("sns unavailable")}
	renderer := &mockRenderer{result: &template.RenderResult{Language: "en", Body: "ping"}}

	handler := newTestHandler(t, renderer, snsClient, nil)
	err := handler.Handle(context.Background(), testRequest("+4915112345678"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}
