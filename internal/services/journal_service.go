package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
	"github.com/truecost/backend/internal/period"
)

// JournalService validates and appends transactions. The journal is
// append-only: there is no update or delete path, balances are the only
// derived state and they move inside the same sql.Tx as the append.
type JournalService struct {
	db        *sql.DB
	accounts  *AccountService
	validator *ValidationHelper
}

func NewJournalService(db *sql.DB, accounts *AccountService) *JournalService {
	return &JournalService{
		db:        db,
		accounts:  accounts,
		validator: NewValidationHelper(),
	}
}

type CreateTransactionInput struct {
	AmountCents     int64              `json:"amountCents" validate:"required,gt=0"`
	FromAccountID   *string            `json:"fromAccountId"`
	ToAccountID     *string            `json:"toAccountId"`
	PayeeID         *string            `json:"payeeId"`
	CategoryID      *string            `json:"categoryId"`
	AccrualType     models.AccrualType `json:"accrualType" validate:"omitempty,oneof=Flow Adjustment"`
	IsAssetPurchase bool               `json:"isAssetPurchase"`
	Note            *string            `json:"note"`
	OccurredAt      *string            `json:"occurredAt"`
}

// Create appends a journal entry and applies its balance deltas as one
// atomic unit.
func (s *JournalService) Create(input CreateTransactionInput) (*models.Transaction, error) {
	txn, err := s.buildTransaction(input)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.appendTx(tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[JOURNAL] Appended %s transaction %s (%d cents)", txn.AccrualType, txn.ID, txn.AmountCents)
	return s.Get(txn.ID)
}

func (s *JournalService) buildTransaction(input CreateTransactionInput) (*models.Transaction, error) {
	if input.AmountCents <= 0 {
		return nil, models.NewValidationError("amountCents must be greater than 0")
	}

	accrualType := input.AccrualType
	if accrualType == "" {
		accrualType = models.AccrualFlow
	}
	// Depreciation never enters the journal: it is derived at report
	// time from amortization schedules.
	if accrualType != models.AccrualFlow && accrualType != models.AccrualAdjustment {
		return nil, models.NewValidationError("accrualType must be Flow or Adjustment")
	}

	if input.FromAccountID == nil && input.ToAccountID == nil {
		return nil, models.NewValidationError("transaction needs a from or to account")
	}

	occurredAt, err := database.NormalizeTimestamp(input.OccurredAt)
	if err != nil {
		return nil, err
	}

	return &models.Transaction{
		ID:              uuid.NewString(),
		AmountCents:     input.AmountCents,
		FromAccountID:   input.FromAccountID,
		ToAccountID:     input.ToAccountID,
		PayeeID:         input.PayeeID,
		CategoryID:      input.CategoryID,
		AccrualType:     accrualType,
		IsAssetPurchase: input.IsAssetPurchase,
		Note:            input.Note,
		OccurredAt:      occurredAt,
		CreatedAt:       database.NowRFC3339(),
	}, nil
}

// appendTx writes the journal row and moves the referenced balances
// inside an already-open transaction. Used directly by the amortization
// and reconciliation engines to extend their atomic units.
func (s *JournalService) appendTx(tx *sql.Tx, txn *models.Transaction) error {
	if txn.CategoryID != nil {
		if err := existsTx(tx, "categories", *txn.CategoryID, "category"); err != nil {
			return err
		}
	}
	if txn.PayeeID != nil {
		if err := existsTx(tx, "payees", *txn.PayeeID, "payee"); err != nil {
			return err
		}
	}

	// Sign convention: the from side is debited, the to side credited.
	// For liabilities the same signs make a charge more negative and a
	// payment move toward zero. Deltas run before the insert so that an
	// unknown account is reported as not found, not as a constraint
	// failure.
	if txn.FromAccountID != nil {
		if err := s.accounts.applyDeltaTx(tx, *txn.FromAccountID, -txn.AmountCents); err != nil {
			return err
		}
	}
	if txn.ToAccountID != nil {
		if err := s.accounts.applyDeltaTx(tx, *txn.ToAccountID, txn.AmountCents); err != nil {
			return err
		}
	}

	_, err := tx.Exec(`
		INSERT INTO transactions (
			id, amount_cents, from_account_id, to_account_id, payee_id, category_id,
			accrual_type, is_asset_purchase, note, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.AmountCents, txn.FromAccountID, txn.ToAccountID, txn.PayeeID, txn.CategoryID,
		txn.AccrualType, txn.IsAssetPurchase, txn.Note, txn.OccurredAt, txn.CreatedAt)
	return err
}

func existsTx(tx *sql.Tx, table, id, label string) error {
	var one int
	err := tx.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return models.NewNotFoundError("%s not found: %s", label, id)
	}
	return err
}

// Get loads one transaction by id.
func (s *JournalService) Get(txID string) (*models.Transaction, error) {
	row := s.db.QueryRow(`
		SELECT id, amount_cents, from_account_id, to_account_id, payee_id, category_id,
		       accrual_type, is_asset_purchase, note, occurred_at, created_at
		FROM transactions WHERE id = ?`, txID)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("transaction not found: %s", txID)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// List returns journal entries, newest first, optionally filtered by
// calendar month and accrual type.
func (s *JournalService) List(periodYm *string, accrualType *models.AccrualType) (*models.PagedTransactions, error) {
	if periodYm != nil {
		if _, err := period.Parse(*periodYm); err != nil {
			return nil, models.NewValidationError("invalid periodYm: %s", *periodYm)
		}
	}

	rows, err := s.db.Query(`
		SELECT id, amount_cents, from_account_id, to_account_id, payee_id, category_id,
		       accrual_type, is_asset_purchase, note, occurred_at, created_at
		FROM transactions
		WHERE (? IS NULL OR substr(occurred_at, 1, 7) = ?)
		  AND (? IS NULL OR accrual_type = ?)
		ORDER BY occurred_at DESC, created_at DESC`,
		periodYm, periodYm, accrualType, accrualType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Transaction{}
	for rows.Next() {
		txn, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &models.PagedTransactions{Items: items, Total: len(items)}, nil
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var txn models.Transaction
	var from, to, payee, category, note sql.NullString
	err := row.Scan(&txn.ID, &txn.AmountCents, &from, &to, &payee, &category,
		&txn.AccrualType, &txn.IsAssetPurchase, &note, &txn.OccurredAt, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	assignNullables(&txn, from, to, payee, category, note)
	return &txn, nil
}

func scanTransactionRows(rows *sql.Rows) (*models.Transaction, error) {
	var txn models.Transaction
	var from, to, payee, category, note sql.NullString
	err := rows.Scan(&txn.ID, &txn.AmountCents, &from, &to, &payee, &category,
		&txn.AccrualType, &txn.IsAssetPurchase, &note, &txn.OccurredAt, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	assignNullables(&txn, from, to, payee, category, note)
	return &txn, nil
}

func assignNullables(txn *models.Transaction, from, to, payee, category, note sql.NullString) {
	if from.Valid {
		txn.FromAccountID = &from.String
	}
	if to.Valid {
		txn.ToAccountID = &to.String
	}
	if payee.Valid {
		txn.PayeeID = &payee.String
	}
	if category.Valid {
		txn.CategoryID = &category.String
	}
	if note.Valid {
		txn.Note = &note.String
	}
}

// CreateTransaction handles POST /transactions
func (s *JournalService) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input CreateTransactionInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}

	txn, err := s.Create(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, txn)
}

// ListTransactions handles GET /transactions
func (s *JournalService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var periodYm *string
	if v := r.URL.Query().Get("periodYm"); v != "" {
		periodYm = &v
	}
	var accrualType *models.AccrualType
	if v := r.URL.Query().Get("accrualType"); v != "" {
		at := models.AccrualType(v)
		accrualType = &at
	}

	page, err := s.List(periodYm, accrualType)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}
