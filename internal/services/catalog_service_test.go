package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truecost/backend/internal/models"
)

func TestCatalogService_Categories(t *testing.T) {
	ledger := newTestLedger(t)

	t.Run("create and list sorted", func(t *testing.T) {
		transport, err := ledger.catalog.CreateCategory(CreateCategoryInput{Name: "Transport"})
		require.NoError(t, err)
		_, err = ledger.catalog.CreateCategory(CreateCategoryInput{Name: "  Groceries  "})
		require.NoError(t, err)
		_, err = ledger.catalog.CreateCategory(CreateCategoryInput{Name: "Fuel", ParentID: &transport.ID})
		require.NoError(t, err)

		categories, err := ledger.catalog.ListCategories()
		require.NoError(t, err)
		require.Len(t, categories, 3)
		assert.Equal(t, "Fuel", categories[0].Name)
		assert.Equal(t, "Groceries", categories[1].Name)
		assert.Equal(t, "Transport", categories[2].Name)
		require.NotNil(t, categories[0].ParentID)
		assert.Equal(t, transport.ID, *categories[0].ParentID)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := ledger.catalog.CreateCategory(CreateCategoryInput{Name: "Groceries"})
		assert.True(t, models.IsConflict(err))
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, err := ledger.catalog.CreateCategory(CreateCategoryInput{Name: "   "})
		assert.True(t, models.IsValidation(err))
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		_, err := ledger.catalog.CreateCategory(CreateCategoryInput{Name: "Orphan", ParentID: strPtr("ghost")})
		assert.True(t, models.IsNotFound(err))
	})
}

func TestCatalogService_Payees(t *testing.T) {
	ledger := newTestLedger(t)
	groceries, err := ledger.catalog.CreateCategory(CreateCategoryInput{Name: "Groceries"})
	require.NoError(t, err)

	t.Run("create with default category", func(t *testing.T) {
		payee, err := ledger.catalog.CreatePayee(CreatePayeeInput{
			Name:              "Corner Market",
			DefaultCategoryID: &groceries.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, payee.DefaultCategoryID)
		assert.Equal(t, groceries.ID, *payee.DefaultCategoryID)

		payees, err := ledger.catalog.ListPayees()
		require.NoError(t, err)
		require.Len(t, payees, 1)
		assert.Equal(t, "Corner Market", payees[0].Name)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := ledger.catalog.CreatePayee(CreatePayeeInput{Name: "Corner Market"})
		assert.True(t, models.IsConflict(err))
	})

	t.Run("rejects an unknown default category", func(t *testing.T) {
		_, err := ledger.catalog.CreatePayee(CreatePayeeInput{Name: "Hardware Store", DefaultCategoryID: strPtr("ghost")})
		assert.True(t, models.IsNotFound(err))
	})
}

func TestCatalogService_Handlers(t *testing.T) {
	ledger := newTestLedger(t)

	post := func(t *testing.T, handler http.HandlerFunc, payload any) *httptest.ResponseRecorder {
		t.Helper()
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	t.Run("create category returns 201", func(t *testing.T) {
		rec := post(t, ledger.catalog.CreateCategoryHandler, CreateCategoryInput{Name: "Rent"})
		assert.Equal(t, http.StatusCreated, rec.Code)

		var category models.Category
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &category))
		assert.Equal(t, "Rent", category.Name)
		assert.NotEmpty(t, category.ID)
	})

	t.Run("duplicate returns 409", func(t *testing.T) {
		rec := post(t, ledger.catalog.CreateCategoryHandler, CreateCategoryInput{Name: "Rent"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, models.CodeConflict, resp.Code)
	})

	t.Run("missing name returns 400", func(t *testing.T) {
		rec := post(t, ledger.catalog.CreateCategoryHandler, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list categories returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
		rec := httptest.NewRecorder()
		ledger.catalog.ListCategoriesHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var categories []models.Category
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
		assert.Len(t, categories, 1)
	})
}
