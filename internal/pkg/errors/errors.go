// Package errors provides the API error type returned by handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
)

// Error codes clients switch on.
const (
	CodeBadRequest         = "bad_request"
	CodeValidation         = "validation_error"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeRateLimited        = "rate_limited"
	CodeQuotaExceeded      = "quota_exceeded"
	CodeUpgradeRequired    = "upgrade_required"
	CodeInternal           = "internal_error"
	CodeServiceUnavailable = "service_unavailable"
)

// APIError is the error half of the response envelope.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func newError(code string, status int, message string) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: status}
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches on code, so a sentinel matches any copy made from it.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *APIError) clone() *APIError {
	c := *e
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *APIError) WithDetails(details any) *APIError {
	c := e.clone()
	c.Details = details
	return c
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	c := e.clone()
	c.Message = message
	return c
}

// Sentinels. Never mutate these; derive copies with WithMessage/WithDetails.
var (
	ErrBadRequest   = newError(CodeBadRequest, http.StatusBadRequest, "Invalid request")
	ErrUnauthorized = newError(CodeUnauthorized, http.StatusUnauthorized, "Authentication required")
	ErrForbidden    = newError(CodeForbidden, http.StatusForbidden, "You don't have permission to perform this action")
	ErrNotFound     = newError(CodeNotFound, http.StatusNotFound, "Resource not found")
	ErrRateLimited  = newError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests. Please try again later.")

	// ErrQuotaExceeded means a counted plan limit (seats, providers) is used up.
	ErrQuotaExceeded = newError(CodeQuotaExceeded, http.StatusPaymentRequired, "You've reached your plan limits")

	// ErrUpgradeRequired means the feature belongs to a higher tier.
	ErrUpgradeRequired = newError(CodeUpgradeRequired, http.StatusPaymentRequired, "This feature is not included in your plan")

	ErrInternal           = newError(CodeInternal, http.StatusInternalServerError, "An internal error occurred")
	ErrServiceUnavailable = newError(CodeServiceUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable")
)

// NewValidationError reports one invalid field.
func NewValidationError(field, message string) *APIError {
	e := newError(CodeValidation, http.StatusBadRequest, fmt.Sprintf("Validation failed: %s", message))
	e.Details = map[string]string{"field": field, "error": message}
	return e
}

// NewValidationErrors reports several invalid fields keyed by name.
func NewValidationErrors(fields map[string]string) *APIError {
	e := newError(CodeValidation, http.StatusBadRequest, "One or more fields failed validation")
	e.Details = fields
	return e
}

// NewNotFoundError names the missing resource.
func NewNotFoundError(resource string) *APIError {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s not found", resource))
}

// NewUpgradeRequiredError names the tier that unlocks a feature.
func NewUpgradeRequiredError(current, required models.Plan) *APIError {
	return ErrUpgradeRequired.WithDetails(map[string]string{
		"current_plan":  string(current),
		"required_plan": string(required),
	})
}

// NewQuotaExceededError reports which limit was reached.
func NewQuotaExceededError(limit string, max int64, plan models.Plan) *APIError {
	return ErrQuotaExceeded.WithDetails(map[string]any{
		"limit": limit,
		"max":   max,
		"plan":  string(plan),
	})
}

// IsAPIError reports whether err wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AsAPIError unwraps err to an *APIError, or ErrInternal when there is none.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
