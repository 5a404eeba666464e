// Package mcperr defines the normalized error taxonomy surfaced over MCP.
//
// Every failure leaving the execution engine — transport, HTTP status,
// server error code, or local validation — is represented as one *Error
// with a stable code, category, and severity. Raw server payloads are
// preserved under Details["jasperError"] but never interpreted by callers.
package mcperr

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category is the coarse classification axis of the taxonomy.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryValidation     Category = "validation"
	CategoryResource       Category = "resource"
	CategoryExecution      Category = "execution"
	CategoryNetwork        Category = "network"
	CategoryConfiguration  Category = "configuration"
	CategoryInternal       Category = "internal"
)

// Severity grades how urgently an operator should care.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Stable taxonomy codes. These are part of the tool contract: protocol
// clients match on them, so they never change once published.
const (
	CodeInvalidRequest         = "InvalidRequest"
	CodeInvalidParams          = "InvalidParams"
	CodeAuthenticationRequired = "AuthenticationRequired"
	CodePermissionDenied       = "PermissionDenied"
	CodeResourceNotFound       = "ResourceNotFound"
	CodeResourceConflict       = "ResourceConflict"
	CodeTimeoutError           = "TimeoutError"
	CodeConnectionError        = "ConnectionError"
	CodeInternalError          = "InternalError"
	CodeServiceUnavailable     = "ServiceUnavailable"
	CodeUnknownError           = "UnknownError"
)

// Error is the normalized error surfaced to MCP clients. Immutable once
// created; StatusCode is nil when no HTTP status applies (e.g. connection
// failures before any response).
type Error struct {
	Code       string         `json:"code"`
	Category   Category       `json:"category"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode *int           `json:"statusCode"`
	Timestamp  string         `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s/%s]: %s", e.Code, e.Category, e.Severity, e.Message)
}

// JSON renders the error for protocol-level serialization. Marshaling a
// map[string]any cannot fail here; the fallback covers exotic Details.
func (e *Error) JSON() string {
	out, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"code":%q,"category":%q,"message":%q}`, e.Code, e.Category, e.Message)
	}
	return string(out)
}

// newError stamps the creation time; all constructors funnel through here.
func newError(code string, category Category, severity Severity, message string, details map[string]any, statusCode *int) *Error {
	return &Error{
		Code:       code,
		Category:   category,
		Severity:   severity,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func intPtr(v int) *int { return &v }

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError builds the canonical local-validation failure.
func NewValidationError(fieldErrors []FieldError) *Error {
	return newError(
		CodeInvalidRequest,
		CategoryValidation,
		SeverityLow,
		fmt.Sprintf("Validation failed for %d field(s)", len(fieldErrors)),
		map[string]any{"fieldErrors": fieldErrors},
		intPtr(400),
	)
}

// NewConnectionError builds a network failure with no HTTP status.
func NewConnectionError(cause string, networkDetails map[string]any) *Error {
	return newError(
		CodeConnectionError,
		CategoryNetwork,
		SeverityHigh,
		fmt.Sprintf("Connection failed: %s", cause),
		networkDetails,
		nil,
	)
}

// NewConfigurationError flags an invalid configuration value.
func NewConfigurationError(key, reason string, extraDetails map[string]any) *Error {
	details := map[string]any{
		"configurationError": map[string]any{
			"key":    key,
			"reason": reason,
		},
	}
	for k, v := range extraDetails {
		details[k] = v
	}
	return newError(
		CodeInvalidRequest,
		CategoryConfiguration,
		SeverityMedium,
		fmt.Sprintf("Invalid configuration for %q: %s", key, reason),
		details,
		intPtr(400),
	)
}

// NewNotExecutableError flags a resource that resolved but is not an
// executable report unit.
func NewNotExecutableError(uri, resourceType string) *Error {
	return newError(
		CodeInvalidRequest,
		CategoryValidation,
		SeverityLow,
		fmt.Sprintf("Resource %s is not a report unit (type: %s)", uri, resourceType),
		map[string]any{"uri": uri, "resourceType": resourceType},
		intPtr(400),
	)
}

// NewExecutionNotFoundError flags an unknown execution ID.
func NewExecutionNotFoundError(executionID string) *Error {
	return newError(
		CodeResourceNotFound,
		CategoryResource,
		SeverityMedium,
		fmt.Sprintf("Execution %s not found", executionID),
		map[string]any{"executionId": executionID},
		intPtr(404),
	)
}

// NewInternalError wraps an unclassifiable failure.
func NewInternalError(message string, details map[string]any) *Error {
	return newError(CodeInternalError, CategoryInternal, SeverityHigh, message, details, intPtr(500))
}
