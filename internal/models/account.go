package models

type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

type AssetPurpose string

const (
	PurposeInvestment   AssetPurpose = "Investment"
	PurposeProductivity AssetPurpose = "Productivity"
	PurposeLifeSupport  AssetPurpose = "LifeSupport"
	PurposeSpiritual    AssetPurpose = "Spiritual"
)

func (p AssetPurpose) Valid() bool {
	switch p {
	case PurposeInvestment, PurposeProductivity, PurposeLifeSupport, PurposeSpiritual:
		return true
	}
	return false
}

// Account balances are in minor currency units (cents). A Liability
// account's balance is stored <= 0. Version backs optimistic locking on
// balance writes; it never leaves the API boundary.
type Account struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	AccountType  AccountType  `json:"accountType" db:"type"`
	Purpose      AssetPurpose `json:"purpose" db:"purpose"`
	BalanceCents int64        `json:"balanceCents" db:"balance_cents"`
	Version      int          `json:"-" db:"version"`
	CreatedAt    string       `json:"createdAt" db:"created_at"`
	UpdatedAt    string       `json:"updatedAt" db:"updated_at"`
}
