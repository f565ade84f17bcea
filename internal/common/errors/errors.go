// Package errors provides standardized error handling for the notification pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeTemplateNotFound       ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeDuplicateTemplateID    ErrorCode = "DUPLICATE_TEMPLATE_ID"
	ErrCodeMissingVariables       ErrorCode = "MISSING_VARIABLES"
	ErrCodeNoTranslationAvailable ErrorCode = "NO_TRANSLATION_AVAILABLE"
	ErrCodeVersionConflict        ErrorCode = "VERSION_CONFLICT"

	ErrCodeMessageSchemaInvalid ErrorCode = "MESSAGE_SCHEMA_INVALID"
	ErrCodeRetryExhausted       ErrorCode = "RETRY_EXHAUSTED"

	ErrCodeBrokerUnavailable      ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodePublishFailed          ErrorCode = "PUBLISH_FAILED"
	ErrCodeCircuitOpen            ErrorCode = "CIRCUIT_OPEN"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from any error, unwrapping as needed.
// Errors that are not StandardError map to INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether the error should be retried by the caller.
// Unknown errors default to retryable so that transient infrastructure
// failures are never dead-lettered on the first attempt.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}

// MissingVariablesOf returns the missing placeholder names recorded on a
// MISSING_VARIABLES error, or nil for any other error.
func MissingVariablesOf(err error) []string {
	var stdErr *StandardError
	if !errors.As(err, &stdErr) || stdErr.Code != ErrCodeMissingVariables {
		return nil
	}
	if vars, ok := stdErr.Metadata["missing_variables"].([]string); ok {
		return vars
	}
	return nil
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTemplateNotFoundError creates a non-retryable template lookup error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found or inactive",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateTemplateIDError creates a non-retryable creation conflict error.
func NewDuplicateTemplateIDError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateTemplateID,
		Message:   "Template with this ID already exists",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingVariablesError creates a non-retryable render validation error
// carrying the missing placeholder names.
func NewMissingVariablesError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingVariables,
		Message:   "Missing required template variables",
		Details:   strings.Join(missing, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"missing_variables": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewNoTranslationAvailableError creates a non-retryable translation resolution error.
func NewNoTranslationAvailableError(templateID, languageCode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoTranslationAvailable,
		Message:   "No translation available for template",
		Details:   fmt.Sprintf("templateId: %s, languageCode: %s", templateID, languageCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVersionConflictError creates a retryable concurrent update error.
// The caller may retry the update against the new current version.
func NewVersionConflictError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVersionConflict,
		Message:   "Concurrent version update detected",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageSchemaInvalidError creates a non-retryable inbound message error.
// Malformed messages cannot self-heal by retrying.
func NewMessageSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMessageSchemaInvalid,
		Message:   "Notification message failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetryExhaustedError creates a non-retryable error for a message whose
// retry budget is spent.
func NewRetryExhaustedError(messageID string, retries int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetryExhausted,
		Message:   "Retry budget exhausted",
		Details:   fmt.Sprintf("messageId: %s, retries: %d", messageID, retries),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBrokerUnavailableError creates a retryable broker connectivity error.
func NewBrokerUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBrokerUnavailable,
		Message:   "Message broker unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPublishFailedError creates a non-fatal publish error reported to the
// caller after the retry budget is exhausted.
func NewPublishFailedError(routingKey string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePublishFailed,
		Message:   "Event publish failed after retries",
		Details:   fmt.Sprintf("routingKey: %s, error: %s", routingKey, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCircuitOpenError creates a fail-fast error returned while the breaker is open.
func NewCircuitOpenError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCircuitOpen,
		Message:   "Circuit breaker is open",
		Details:   fmt.Sprintf("breaker: %s", name),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable channel send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "TRANSLATION") || strings.Contains(codeStr, "VERSION"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "VARIABLES") || strings.Contains(codeStr, "SCHEMA"):
		return "VALIDATION"
	case strings.Contains(codeStr, "BROKER") || strings.Contains(codeStr, "PUBLISH") || strings.Contains(codeStr, "CIRCUIT"):
		return "BROKER"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "RETRY"):
		return "DELIVERY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	default:
		return "OTHER"
	}
}
