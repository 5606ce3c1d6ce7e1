package services

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
)

// AccountService owns account lifecycle and balance semantics. Balance
// writes go through applyDeltaTx inside the caller's sql.Tx so that a
// journal append and its balance effect commit as one unit.
type AccountService struct {
	db        *sql.DB
	validator *ValidationHelper
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{
		db:        db,
		validator: NewValidationHelper(),
	}
}

type CreateAccountInput struct {
	Name                string              `json:"name" validate:"required"`
	AccountType         models.AccountType  `json:"accountType" validate:"required"`
	Purpose             models.AssetPurpose `json:"purpose" validate:"required"`
	InitialBalanceCents int64               `json:"initialBalanceCents"`
}

// Create validates and persists a new account.
func (s *AccountService) Create(input CreateAccountInput) (*models.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, models.NewValidationError("account name cannot be empty")
	}
	if !input.AccountType.Valid() {
		return nil, models.NewValidationError("accountType must be Asset or Liability")
	}
	if !input.Purpose.Valid() {
		return nil, models.NewValidationError("unknown purpose: %s", input.Purpose)
	}
	if input.AccountType == models.AccountTypeLiability && input.InitialBalanceCents > 0 {
		return nil, models.NewValidationError("liability initial balance must be <= 0")
	}

	accountID := uuid.NewString()
	now := database.NowRFC3339()

	_, err := s.db.Exec(`
		INSERT INTO accounts (id, name, type, purpose, balance_cents, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		accountID, name, input.AccountType, input.Purpose, input.InitialBalanceCents, now, now)
	if err != nil {
		return nil, err
	}

	log.Printf("[ACCOUNT] Created %s account %q (%s)", input.AccountType, name, accountID)
	return s.Get(accountID)
}

// List returns all accounts ordered by name.
func (s *AccountService) List() ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, name, type, purpose, balance_cents, version, created_at, updated_at
		FROM accounts ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountType, &a.Purpose, &a.BalanceCents, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Get loads one account by id.
func (s *AccountService) Get(accountID string) (*models.Account, error) {
	return scanAccount(s.db.QueryRow(`
		SELECT id, name, type, purpose, balance_cents, version, created_at, updated_at
		FROM accounts WHERE id = ?`, accountID), accountID)
}

// GetBalance returns the current balance in cents.
func (s *AccountService) GetBalance(accountID string) (int64, error) {
	account, err := s.Get(accountID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

// getTx loads one account inside an open transaction.
func (s *AccountService) getTx(tx *sql.Tx, accountID string) (*models.Account, error) {
	return scanAccount(tx.QueryRow(`
		SELECT id, name, type, purpose, balance_cents, version, created_at, updated_at
		FROM accounts WHERE id = ?`, accountID), accountID)
}

// applyDeltaTx applies a signed balance delta under an optimistic
// version check. Zero rows affected means a concurrent writer bumped
// the version after our read; the whole operation must be retried.
func (s *AccountService) applyDeltaTx(tx *sql.Tx, accountID string, deltaCents int64) error {
	account, err := s.getTx(tx, accountID)
	if err != nil {
		return err
	}

	newBalance := account.BalanceCents + deltaCents
	if account.AccountType == models.AccountTypeLiability && newBalance > 0 {
		return models.NewValidationError("liability account balance cannot be positive: %s", accountID)
	}

	result, err := tx.Exec(`
		UPDATE accounts SET balance_cents = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		newBalance, database.NowRFC3339(), accountID, account.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewConflictError("concurrent update on account %s", accountID)
	}
	return nil
}

func scanAccount(row *sql.Row, accountID string) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.AccountType, &a.Purpose, &a.BalanceCents, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("account not found: %s", accountID)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts handles GET /accounts
func (s *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.List()
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /accounts
func (s *AccountService) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var input CreateAccountInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}

	account, err := s.Create(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, account)
}
