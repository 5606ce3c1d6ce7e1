package models

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidInput       = "invalid_input"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeInvalidCredentials = "auth_invalid_credentials"
	CodeInvalidToken       = "auth_invalid_token"
)

// APIError is the error taxonomy shared by every service. Validation
// and not-found errors are terminal for the caller; a conflict means a
// concurrent writer invalidated the attempt and the whole operation can
// be retried from scratch.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *APIError {
	return &APIError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func NewNotFoundError(format string, args ...any) *APIError {
	return &APIError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

func NewConflictError(format string, args ...any) *APIError {
	return &APIError{Code: CodeConflict, Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

func NewAuthError(code, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: http.StatusUnauthorized}
}

func apiErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func IsValidation(err error) bool { return apiErrorCode(err) == CodeInvalidInput }
func IsNotFound(err error) bool   { return apiErrorCode(err) == CodeNotFound }
func IsConflict(err error) bool   { return apiErrorCode(err) == CodeConflict }
