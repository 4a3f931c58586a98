// Package handler provides HTTP handlers for the Hola Lucia API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AIX-Clever/chat-booking-admin/internal/middleware"
	apierrors "github.com/AIX-Clever/chat-booking-admin/internal/pkg/errors"
	"github.com/AIX-Clever/chat-booking-admin/internal/pkg/response"
)

// maxBodyBytes caps request bodies. Step maps for large flows stay well below it.
const maxBodyBytes = 1 << 20

// requireTenant returns the caller's tenant or writes 401.
func requireTenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		response.Error(w, apierrors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return tenantID, true
}

// readBody reads a bounded request body or writes 400.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return nil, false
	}
	return body, true
}

// decodeBody decodes JSON into dst and runs struct validation on it.
func decodeBody(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		response.Error(w, validationError(err))
		return false
	}
	return true
}

// validationError converts validator field errors into an API error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierrors.ErrBadRequest.WithMessage(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apierrors.NewValidationErrors(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
