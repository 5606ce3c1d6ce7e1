package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
)

// ReconciliationService trues ledger balances up against real-world
// balance checks. A non-zero delta produces exactly one Adjustment
// journal entry; reconciling the same actual balance twice is a no-op
// the second time.
type ReconciliationService struct {
	db        *sql.DB
	accounts  *AccountService
	journal   *JournalService
	validator *ValidationHelper
}

func NewReconciliationService(db *sql.DB, accounts *AccountService, journal *JournalService) *ReconciliationService {
	return &ReconciliationService{
		db:        db,
		accounts:  accounts,
		journal:   journal,
		validator: NewValidationHelper(),
	}
}

type ReconcileInput struct {
	AccountID          string  `json:"accountId" validate:"required"`
	ActualBalanceCents int64   `json:"actualBalanceCents"`
	OccurredAt         *string `json:"occurredAt"`
	Note               *string `json:"note"`
}

// Reconcile compares the asserted balance to the ledger and corrects
// the difference. Every call, including a no-op, leaves a snapshot row
// for the audit trail.
func (s *ReconciliationService) Reconcile(input ReconcileInput) (*models.ReconcileResult, error) {
	occurredAt, err := database.NormalizeTimestamp(input.OccurredAt)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The balance read and the correcting entry share one transaction;
	// a reconciliation computed against a stale balance would correct
	// to the wrong target.
	account, err := s.accounts.getTx(tx, input.AccountID)
	if err != nil {
		return nil, err
	}

	delta := input.ActualBalanceCents - account.BalanceCents

	var adjustment *models.Transaction
	if delta != 0 {
		note := "Auto adjustment from reconciliation"
		if input.Note != nil && *input.Note != "" {
			note = *input.Note
		}
		adjustment = &models.Transaction{
			ID:          uuid.NewString(),
			AmountCents: delta,
			AccrualType: models.AccrualAdjustment,
			Note:        &note,
			OccurredAt:  occurredAt,
			CreatedAt:   database.NowRFC3339(),
		}
		// A shortfall debits the account, a surplus credits it, so the
		// applied delta lands the balance exactly on the asserted value.
		if delta < 0 {
			adjustment.AmountCents = -delta
			adjustment.FromAccountID = &input.AccountID
		} else {
			adjustment.ToAccountID = &input.AccountID
		}

		if err := s.journal.appendTx(tx, adjustment); err != nil {
			return nil, err
		}
	}

	var adjustmentID *string
	if adjustment != nil {
		adjustmentID = &adjustment.ID
	}
	_, err = tx.Exec(`
		INSERT INTO balance_snapshots (
			id, account_id, actual_balance_cents, system_balance_cents,
			delta_cents, captured_at, adjustment_tx_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), input.AccountID, input.ActualBalanceCents,
		account.BalanceCents, delta, database.NowRFC3339(), adjustmentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if delta != 0 {
		log.Printf("[RECONCILE] Account %s adjusted by %d cents (tx %s)", input.AccountID, delta, adjustment.ID)
	}

	refreshed, err := s.accounts.Get(input.AccountID)
	if err != nil {
		return nil, err
	}
	if adjustment != nil {
		adjustment, err = s.journal.Get(adjustment.ID)
		if err != nil {
			return nil, err
		}
	}
	return &models.ReconcileResult{
		Account:               *refreshed,
		DeltaCents:            delta,
		AdjustmentTransaction: adjustment,
	}, nil
}

// ReconcileAccount handles POST /reconciliations
func (s *ReconciliationService) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	var input ReconcileInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}

	result, err := s.Reconcile(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
