package models

type AmortizationStrategy string

const (
	StrategyLinear      AmortizationStrategy = "Linear"
	StrategyAccelerated AmortizationStrategy = "Accelerated"
)

func (s AmortizationStrategy) Valid() bool {
	return s == StrategyLinear || s == StrategyAccelerated
}

type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "Active"
	ScheduleCompleted ScheduleStatus = "Completed"
)

// AmortizationSchedule spreads an asset purchase over TotalPeriods
// calendar months starting at StartDate (YYYY-MM-DD). Status is derived
// from the current month, not a persisted transition: rows are written
// Active and reported Completed once the schedule has fully accrued.
type AmortizationSchedule struct {
	ID                  string               `json:"id" db:"id"`
	AssetAccountID      string               `json:"assetAccountId" db:"asset_account_id"`
	Strategy            AmortizationStrategy `json:"strategy" db:"strategy"`
	TotalPeriods        int                  `json:"totalPeriods" db:"total_periods"`
	ResidualCents       int64                `json:"residualCents" db:"residual_cents"`
	StartDate           string               `json:"startDate" db:"start_date"`
	SourceTransactionID string               `json:"sourceTransactionId" db:"source_transaction_id"`
	Status              ScheduleStatus       `json:"status" db:"status"`
}

type AssetPurchaseResult struct {
	Transaction Transaction          `json:"transaction"`
	Schedule    AmortizationSchedule `json:"schedule"`
}
