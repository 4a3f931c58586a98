package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error is an API error response.
type Error struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`

	// RetryAfter is set from the Retry-After header of 429 responses.
	RetryAfter time.Duration `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsNotFound reports a missing resource.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == "not_found"
}

// IsUnauthorized reports a missing or rejected token.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "unauthorized"
}

// IsRateLimited reports an exhausted request window.
func (e *Error) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limited"
}

// IsValidationError reports a rejected request body or parameter.
func (e *Error) IsValidationError() bool {
	return e.Code == "validation_error"
}

// IsUpgradeRequired reports that the tenant's plan is below the feature's tier.
func (e *Error) IsUpgradeRequired() bool {
	return e.Code == "upgrade_required"
}

// IsQuotaExceeded reports that a plan limit has been reached.
func (e *Error) IsQuotaExceeded() bool {
	return e.Code == "quota_exceeded"
}

// RequiredPlan returns the tier named by an upgrade_required error.
func (e *Error) RequiredPlan() string {
	return e.detail("required_plan")
}

// CurrentPlan returns the tenant's tier as reported by a 402 error.
func (e *Error) CurrentPlan() string {
	if s := e.detail("current_plan"); s != "" {
		return s
	}
	return e.detail("plan")
}

// Field returns the offending field of a single-field validation error.
func (e *Error) Field() string {
	return e.detail("field")
}

func (e *Error) detail(key string) string {
	s, _ := e.Details[key].(string)
	return s
}

func parseError(resp *http.Response, body []byte) error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Code:       http.StatusText(resp.StatusCode),
		Message:    string(body),
	}

	var wrapped struct {
		Error Error `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Code != "" {
		wrapped.Error.StatusCode = resp.StatusCode
		apiErr = &wrapped.Error
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

// AsError returns the API error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
