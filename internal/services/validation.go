package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/truecost/backend/internal/models"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// WriteJSON sends a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// SendAPIError maps a service error onto the wire: APIError values carry
// their own status and code, anything else is a 500.
func SendAPIError(w http.ResponseWriter, err error) {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		WriteJSON(w, apiErr.Status, ErrorResponse{Code: apiErr.Code, Message: apiErr.Message})
		return
	}
	log.Printf("[API] internal error: %v", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: "An Internal Error Occurred"})
}

// SendValidationError sends a 400 with per-field details
func SendValidationError(w http.ResponseWriter, validationErr error) {
	resp := ErrorResponse{Code: models.CodeInvalidInput, Message: "Validation failed"}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		resp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			resp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}
	WriteJSON(w, http.StatusBadRequest, resp)
}

// DecodeJSONBody decodes a single JSON object with a 1 MB cap
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("invalid request body")
	}
	if dec.More() {
		return models.NewValidationError("request body must only contain a single JSON object")
	}
	return nil
}
