package services

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/truecost/backend/internal/models"
)

// CatalogService manages the categories and payees that journal entries
// and report labels reference.
type CatalogService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db, validator: NewValidationHelper()}
}

type CreateCategoryInput struct {
	Name     string  `json:"name" validate:"required"`
	ParentID *string `json:"parentId"`
}

func (s *CatalogService) CreateCategory(input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, models.NewValidationError("category name cannot be empty")
	}
	if input.ParentID != nil {
		var one int
		if err := s.db.QueryRow(`SELECT 1 FROM categories WHERE id = ?`, *input.ParentID).Scan(&one); err == sql.ErrNoRows {
			return nil, models.NewNotFoundError("category not found: %s", *input.ParentID)
		} else if err != nil {
			return nil, err
		}
	}

	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM categories WHERE name = ?`, name).Scan(&exists)
	if err == nil {
		return nil, models.NewConflictError("category name already exists: %s", name)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	category := &models.Category{ID: uuid.NewString(), Name: name, ParentID: input.ParentID, IsActive: true}
	_, err = s.db.Exec(`INSERT INTO categories (id, name, parent_id, is_active) VALUES (?, ?, ?, 1)`,
		category.ID, category.Name, category.ParentID)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CatalogService) ListCategories() ([]models.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, parent_id, is_active FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &parent, &c.IsActive); err != nil {
			return nil, err
		}
		if parent.Valid {
			c.ParentID = &parent.String
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type CreatePayeeInput struct {
	Name              string  `json:"name" validate:"required"`
	DefaultCategoryID *string `json:"defaultCategoryId"`
}

func (s *CatalogService) CreatePayee(input CreatePayeeInput) (*models.Payee, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, models.NewValidationError("payee name cannot be empty")
	}
	if input.DefaultCategoryID != nil {
		var one int
		if err := s.db.QueryRow(`SELECT 1 FROM categories WHERE id = ?`, *input.DefaultCategoryID).Scan(&one); err == sql.ErrNoRows {
			return nil, models.NewNotFoundError("category not found: %s", *input.DefaultCategoryID)
		} else if err != nil {
			return nil, err
		}
	}

	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM payees WHERE name = ?`, name).Scan(&exists)
	if err == nil {
		return nil, models.NewConflictError("payee name already exists: %s", name)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	payee := &models.Payee{ID: uuid.NewString(), Name: name, DefaultCategoryID: input.DefaultCategoryID}
	_, err = s.db.Exec(`INSERT INTO payees (id, name, default_category_id) VALUES (?, ?, ?)`,
		payee.ID, payee.Name, payee.DefaultCategoryID)
	if err != nil {
		return nil, err
	}
	return payee, nil
}

func (s *CatalogService) ListPayees() ([]models.Payee, error) {
	rows, err := s.db.Query(`SELECT id, name, default_category_id FROM payees ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payees := []models.Payee{}
	for rows.Next() {
		var p models.Payee
		var category sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &category); err != nil {
			return nil, err
		}
		if category.Valid {
			p.DefaultCategoryID = &category.String
		}
		payees = append(payees, p)
	}
	return payees, rows.Err()
}

// ListCategoriesHandler handles GET /categories
func (s *CatalogService) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ListCategories()
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, categories)
}

// CreateCategoryHandler handles POST /categories
func (s *CatalogService) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var input CreateCategoryInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}
	category, err := s.CreateCategory(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, category)
}

// ListPayeesHandler handles GET /payees
func (s *CatalogService) ListPayeesHandler(w http.ResponseWriter, r *http.Request) {
	payees, err := s.ListPayees()
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payees)
}

// CreatePayeeHandler handles POST /payees
func (s *CatalogService) CreatePayeeHandler(w http.ResponseWriter, r *http.Request) {
	var input CreatePayeeInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}
	payee, err := s.CreatePayee(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, payee)
}
