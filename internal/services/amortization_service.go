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

// AmortizationService records asset purchases and projects their cost
// over time. A purchase is a pure internal transfer (funding account to
// asset account); the smoothing happens entirely in projection, nothing
// is ever posted back to the journal or to balances.
type AmortizationService struct {
	db        *sql.DB
	accounts  *AccountService
	journal   *JournalService
	validator *ValidationHelper
}

func NewAmortizationService(db *sql.DB, accounts *AccountService, journal *JournalService) *AmortizationService {
	return &AmortizationService{
		db:        db,
		accounts:  accounts,
		journal:   journal,
		validator: NewValidationHelper(),
	}
}

type CreateAssetPurchaseInput struct {
	FromAccountID  string                      `json:"fromAccountId" validate:"required"`
	AssetAccountID string                      `json:"assetAccountId" validate:"required"`
	AmountCents    int64                       `json:"amountCents" validate:"required,gt=0"`
	Strategy       models.AmortizationStrategy `json:"strategy" validate:"required,oneof=Linear Accelerated"`
	TotalPeriods   int                         `json:"totalPeriods" validate:"required,gte=1"`
	ResidualCents  int64                       `json:"residualCents" validate:"gte=0"`
	StartDate      string                      `json:"startDate" validate:"required"`
	CategoryID     *string                     `json:"categoryId"`
	PayeeID        *string                     `json:"payeeId"`
	Note           *string                     `json:"note"`
	OccurredAt     *string                     `json:"occurredAt"`
}

// CreateAssetPurchase journals the funding transfer and creates its
// amortization schedule in one atomic unit.
func (s *AmortizationService) CreateAssetPurchase(input CreateAssetPurchaseInput) (*models.AssetPurchaseResult, error) {
	if input.AmountCents <= 0 {
		return nil, models.NewValidationError("amountCents must be greater than 0")
	}
	if input.TotalPeriods < 1 {
		return nil, models.NewValidationError("totalPeriods must be greater than 0")
	}
	if input.ResidualCents < 0 || input.ResidualCents > input.AmountCents {
		return nil, models.NewValidationError("residualCents must be between 0 and amountCents")
	}
	if !input.Strategy.Valid() {
		return nil, models.NewValidationError("strategy must be Linear or Accelerated")
	}
	if _, err := period.FromDate(input.StartDate); err != nil {
		return nil, models.NewValidationError("startDate must be YYYY-MM-DD")
	}

	for _, accountID := range []string{input.FromAccountID, input.AssetAccountID} {
		account, err := s.accounts.Get(accountID)
		if err != nil {
			return nil, err
		}
		if account.AccountType != models.AccountTypeAsset {
			return nil, models.NewValidationError("asset purchase requires Asset accounts, %s is %s", accountID, account.AccountType)
		}
	}

	occurredAt, err := database.NormalizeTimestamp(input.OccurredAt)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		ID:              uuid.NewString(),
		AmountCents:     input.AmountCents,
		FromAccountID:   &input.FromAccountID,
		ToAccountID:     &input.AssetAccountID,
		PayeeID:         input.PayeeID,
		CategoryID:      input.CategoryID,
		AccrualType:     models.AccrualFlow,
		IsAssetPurchase: true,
		Note:            input.Note,
		OccurredAt:      occurredAt,
		CreatedAt:       database.NowRFC3339(),
	}
	scheduleID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.journal.appendTx(tx, txn); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO amortization_schedules (
			id, asset_account_id, strategy, total_periods, residual_cents, start_date,
			source_transaction_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 'Active', ?)`,
		scheduleID, input.AssetAccountID, input.Strategy, input.TotalPeriods,
		input.ResidualCents, input.StartDate, txn.ID, database.NowRFC3339())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Printf("[AMORTIZATION] Asset purchase %s: %d cents over %d periods (%s)",
		txn.ID, input.AmountCents, input.TotalPeriods, input.Strategy)

	created, err := s.journal.Get(txn.ID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	return &models.AssetPurchaseResult{Transaction: *created, Schedule: *schedule}, nil
}

// GetSchedule loads one schedule with its status derived for the
// current month.
func (s *AmortizationService) GetSchedule(scheduleID string) (*models.AmortizationSchedule, error) {
	row := s.db.QueryRow(`
		SELECT id, asset_account_id, strategy, total_periods, residual_cents, start_date, source_transaction_id
		FROM amortization_schedules WHERE id = ?`, scheduleID)

	var sched models.AmortizationSchedule
	err := row.Scan(&sched.ID, &sched.AssetAccountID, &sched.Strategy, &sched.TotalPeriods,
		&sched.ResidualCents, &sched.StartDate, &sched.SourceTransactionID)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("schedule not found: %s", scheduleID)
	}
	if err != nil {
		return nil, err
	}
	sched.Status = ScheduleStatusAt(&sched, period.Now())
	return &sched, nil
}

// ScheduleStatusAt derives the lifecycle state for a reporting month.
// Completion is a function of the calendar, never a stored transition.
func ScheduleStatusAt(sched *models.AmortizationSchedule, asOf period.Month) models.ScheduleStatus {
	start, err := period.FromDate(sched.StartDate)
	if err != nil {
		return models.ScheduleActive
	}
	if asOf.Since(start) >= sched.TotalPeriods {
		return models.ScheduleCompleted
	}
	return models.ScheduleActive
}

// DepreciationForPeriod projects the virtual cost of one period,
// 0-based from the schedule start, zero outside [0, totalPeriods).
// Whatever the curve, the lifetime sum is exactly the depreciable base:
// the final period absorbs all rounding.
func DepreciationForPeriod(strategy models.AmortizationStrategy, depreciableCents int64, totalPeriods, periodIndex int) int64 {
	if depreciableCents <= 0 || totalPeriods <= 0 || periodIndex < 0 || periodIndex >= totalPeriods {
		return 0
	}

	if strategy == models.StrategyLinear {
		base := depreciableCents / int64(totalPeriods)
		if periodIndex == totalPeriods-1 {
			return base + depreciableCents%int64(totalPeriods)
		}
		return base
	}

	// Declining balance at 2/totalPeriods of the remaining base,
	// floored by integer division; never more than what remains.
	remaining := depreciableCents
	for i := 0; i < totalPeriods; i++ {
		var cost int64
		if i == totalPeriods-1 {
			cost = remaining
		} else {
			cost = remaining * 2 / int64(totalPeriods)
			if cost > remaining {
				cost = remaining
			}
		}
		if i == periodIndex {
			return cost
		}
		remaining -= cost
	}
	return 0
}

// CreateAssetPurchaseHandler handles POST /asset-purchases
func (s *AmortizationService) CreateAssetPurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var input CreateAssetPurchaseInput
	if err := DecodeJSONBody(w, r, &input); err != nil {
		SendAPIError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&input); err != nil {
		SendValidationError(w, err)
		return
	}

	result, err := s.CreateAssetPurchase(input)
	if err != nil {
		SendAPIError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}
