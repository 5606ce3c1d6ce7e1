package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/truecost/backend/internal/database"
	"github.com/truecost/backend/internal/models"
)

// newTestDB opens a private in-memory ledger with the full schema.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory DB.
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db))

	t.Cleanup(func() { db.Close() })
	return db
}

type testLedger struct {
	db             *sql.DB
	accounts       *AccountService
	journal        *JournalService
	amortization   *AmortizationService
	reconciliation *ReconciliationService
	reports        *ReportService
	kpi            *KpiService
	catalog        *CatalogService
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()

	db := newTestDB(t)
	accounts := NewAccountService(db)
	journal := NewJournalService(db, accounts)
	reports := NewReportService(db)
	return &testLedger{
		db:             db,
		accounts:       accounts,
		journal:        journal,
		amortization:   NewAmortizationService(db, accounts, journal),
		reconciliation: NewReconciliationService(db, accounts, journal),
		reports:        reports,
		kpi:            NewKpiService(db, reports),
		catalog:        NewCatalogService(db),
	}
}

func (l *testLedger) mustAccount(t *testing.T, name string, accountType models.AccountType, initialCents int64) *models.Account {
	t.Helper()
	account, err := l.accounts.Create(CreateAccountInput{
		Name:                name,
		AccountType:         accountType,
		Purpose:             models.PurposeLifeSupport,
		InitialBalanceCents: initialCents,
	})
	require.NoError(t, err)
	return account
}

func (l *testLedger) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	balance, err := l.accounts.GetBalance(accountID)
	require.NoError(t, err)
	return balance
}

func (l *testLedger) journalCount(t *testing.T) int {
	t.Helper()
	var count int
	require.NoError(t, l.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count))
	return count
}

func strPtr(s string) *string { return &s }
