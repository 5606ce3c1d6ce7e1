package models

type ReportItem struct {
	Label       string `json:"label"`
	AmountCents int64  `json:"amountCents"`
}

// Report aggregates one calendar month. Items keep the order in which a
// label was first seen.
type Report struct {
	PeriodYm          string       `json:"periodYm"`
	TotalExpenseCents int64        `json:"totalExpenseCents"`
	Items             []ReportItem `json:"items"`
}

// AdjustmentKpi measures bookkeeping accuracy: how much reconciliation
// had to correct relative to what was spent. Lower is better.
type AdjustmentKpi struct {
	AdjustmentTotalCents int64   `json:"adjustmentTotalCents"`
	ExpenseTotalCents    int64   `json:"expenseTotalCents"`
	Ratio                float64 `json:"ratio"`
}

// ReconcileResult reports a balance true-up. AdjustmentTransaction is
// nil when the ledger already matched the asserted balance.
type ReconcileResult struct {
	Account               Account      `json:"account"`
	DeltaCents            int64        `json:"deltaCents"`
	AdjustmentTransaction *Transaction `json:"adjustmentTransaction"`
}

// BalanceSnapshot is the audit row written by every reconciliation,
// including no-op ones.
type BalanceSnapshot struct {
	ID                 string  `json:"id" db:"id"`
	AccountID          string  `json:"accountId" db:"account_id"`
	ActualBalanceCents int64   `json:"actualBalanceCents" db:"actual_balance_cents"`
	SystemBalanceCents int64   `json:"systemBalanceCents" db:"system_balance_cents"`
	DeltaCents         int64   `json:"deltaCents" db:"delta_cents"`
	CapturedAt         string  `json:"capturedAt" db:"captured_at"`
	AdjustmentTxID     *string `json:"adjustmentTxId" db:"adjustment_tx_id"`
}
