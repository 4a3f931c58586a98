// Package response writes the {data, error, meta} envelope shared by every
// API endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/AIX-Clever/chat-booking-admin/internal/models"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
)

// Response is the envelope. Exactly one of Data or Error is set.
type Response struct {
	Data  any   `json:"data,omitempty"`
	Error any   `json:"error,omitempty"`
	Meta  *Meta `json:"meta,omitempty"`
}

// Meta carries list totals and non-fatal warnings, such as dangling
// transitions found while saving a workflow graph.
type Meta struct {
	Total    int64    `json:"total,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

const encodeFailure = `{"error":{"code":"internal_error","message":"Failed to encode response"}}`

func write(w http.ResponseWriter, status int, body Response) {
	payload, err := json.Marshal(body)
	if err != nil {
		status, payload = http.StatusInternalServerError, []byte(encodeFailure)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(payload, '\n'))
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Data: data})
}

// JSONWithMeta writes data and metadata with the given status code.
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta *Meta) {
	write(w, status, Response{Data: data, Meta: meta})
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// OKWithWarnings writes a 200 response, attaching warnings when present.
func OKWithWarnings(w http.ResponseWriter, data any, warnings []string) {
	if len(warnings) == 0 {
		OK(w, data)
		return
	}
	JSONWithMeta(w, http.StatusOK, data, &Meta{Warnings: warnings})
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err as an API error. Anything that is not an *APIError is
// reported as a 500 without leaking its message.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierrors.AsAPIError(err)
	write(w, apiErr.StatusCode, Response{Error: apiErr})
}

// UpgradeRequired writes a 402 naming the tier the tenant must buy.
func UpgradeRequired(w http.ResponseWriter, current, required models.Plan) {
	Error(w, apierrors.NewUpgradeRequiredError(current, required))
}
