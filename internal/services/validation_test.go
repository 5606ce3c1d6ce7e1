package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truecost/backend/internal/models"
)

type validationProbe struct {
	Name        string `validate:"required,min=2"`
	AmountCents int64  `validate:"required,gt=0"`
	PeriodYm    string `validate:"omitempty,len=7"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		err := vh.ValidateStruct(&validationProbe{Name: "Groceries", AmountCents: 1200})
		assert.NoError(t, err)
	})

	t.Run("collects every failing field", func(t *testing.T) {
		err := vh.ValidateStruct(&validationProbe{Name: "G", AmountCents: -5, PeriodYm: "2026"})
		require.Error(t, err)

		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))
		assert.Len(t, fieldErrs, 3)
	})
}

func TestSendAPIError(t *testing.T) {
	t.Run("maps APIError status and code", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendAPIError(w, models.NewNotFoundError("account not found: %s", "abc"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.CodeNotFound, resp.Code)
		assert.Equal(t, "account not found: abc", resp.Message)
	})

	t.Run("hides unknown errors behind a 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendAPIError(w, errors.New("driver: bad connection"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "internal", resp.Code)
		assert.NotContains(t, resp.Message, "driver")
	})
}

func TestSendValidationError(t *testing.T) {
	vh := NewValidationHelper()
	err := vh.ValidateStruct(&validationProbe{})
	require.Error(t, err)

	w := httptest.NewRecorder()
	SendValidationError(w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.CodeInvalidInput, resp.Code)
	assert.Contains(t, resp.Details, "Name")
	assert.Contains(t, resp.Details, "AmountCents")
}

func TestDecodeJSONBody(t *testing.T) {
	decode := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst validationProbe
		return DecodeJSONBody(httptest.NewRecorder(), req, &dst)
	}

	t.Run("valid object", func(t *testing.T) {
		assert.NoError(t, decode(`{"Name": "Rent", "AmountCents": 90000}`))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		assert.True(t, models.IsValidation(decode(`{"Name": "Rent", "surprise": true}`)))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		assert.True(t, models.IsValidation(decode(`{"Name": `)))
	})

	t.Run("rejects trailing documents", func(t *testing.T) {
		assert.True(t, models.IsValidation(decode(`{"Name": "Rent"}{"Name": "Again"}`)))
	})
}
