package models

type AccrualType string

const (
	AccrualFlow         AccrualType = "Flow"
	AccrualDepreciation AccrualType = "Depreciation"
	AccrualAdjustment   AccrualType = "Adjustment"
)

// Transaction is an append-only journal record. The journal only ever
// stores Flow and Adjustment entries; Depreciation lines are derived by
// the amortization engine at report time and never hit this table.
// Amounts are always positive, direction comes from the account refs:
// from is debited, to is credited.
type Transaction struct {
	ID              string      `json:"id" db:"id"`
	AmountCents     int64       `json:"amountCents" db:"amount_cents"`
	FromAccountID   *string     `json:"fromAccountId" db:"from_account_id"`
	ToAccountID     *string     `json:"toAccountId" db:"to_account_id"`
	PayeeID         *string     `json:"payeeId" db:"payee_id"`
	CategoryID      *string     `json:"categoryId" db:"category_id"`
	AccrualType     AccrualType `json:"accrualType" db:"accrual_type"`
	IsAssetPurchase bool        `json:"isAssetPurchase" db:"is_asset_purchase"`
	Note            *string     `json:"note" db:"note"`
	OccurredAt      string      `json:"occurredAt" db:"occurred_at"`
	CreatedAt       string      `json:"createdAt" db:"created_at"`
}

type PagedTransactions struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
}

type Category struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	ParentID *string `json:"parentId" db:"parent_id"`
	IsActive bool    `json:"isActive" db:"is_active"`
}

type Payee struct {
	ID                string  `json:"id" db:"id"`
	Name              string  `json:"name" db:"name"`
	DefaultCategoryID *string `json:"defaultCategoryId" db:"default_category_id"`
}
