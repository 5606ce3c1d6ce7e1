package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/truecost/backend/internal/config"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('Asset', 'Liability')),
    purpose TEXT NOT NULL CHECK(purpose IN ('Investment', 'Productivity', 'LifeSupport', 'Spiritual')),
    balance_cents INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    CHECK(type != 'Liability' OR balance_cents <= 0)
);
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    parent_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
    is_active INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS payees (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    default_category_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL
);
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    amount_cents INTEGER NOT NULL CHECK(amount_cents > 0),
    from_account_id TEXT NULL REFERENCES accounts(id) ON DELETE SET NULL,
    to_account_id TEXT NULL REFERENCES accounts(id) ON DELETE SET NULL,
    payee_id TEXT NULL REFERENCES payees(id) ON DELETE SET NULL,
    category_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
    accrual_type TEXT NOT NULL CHECK(accrual_type IN ('Flow', 'Adjustment')),
    is_asset_purchase INTEGER NOT NULL DEFAULT 0,
    note TEXT NULL,
    occurred_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS amortization_schedules (
    id TEXT PRIMARY KEY,
    asset_account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    strategy TEXT NOT NULL CHECK(strategy IN ('Linear', 'Accelerated')),
    total_periods INTEGER NOT NULL CHECK(total_periods > 0),
    residual_cents INTEGER NOT NULL CHECK(residual_cents >= 0),
    start_date TEXT NOT NULL,
    source_transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'Active' CHECK(status IN ('Active', 'Completed')),
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS balance_snapshots (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    actual_balance_cents INTEGER NOT NULL,
    system_balance_cents INTEGER NOT NULL,
    delta_cents INTEGER NOT NULL,
    captured_at TEXT NOT NULL,
    adjustment_tx_id TEXT NULL REFERENCES transactions(id) ON DELETE SET NULL
);
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS user_refresh_tokens (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token_hash TEXT NOT NULL UNIQUE,
    expires_at TEXT NOT NULL,
    revoked_at TEXT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_occurred_at ON transactions(occurred_at);
CREATE INDEX IF NOT EXISTS idx_transactions_accrual_type_occurred_at ON transactions(accrual_type, occurred_at);
CREATE INDEX IF NOT EXISTS idx_balance_snapshots_account_captured ON balance_snapshots(account_id, captured_at DESC);
`

// InitDB opens the ledger database, creating the data directory and
// schema on first run.
func InitDB() (*sql.DB, error) {
	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("error creating data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", config.DatabasePath())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors
	// from the pool.
	db.SetMaxOpenConns(1)

	if err := ApplySchema(db); err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

// ApplySchema creates all ledger tables if missing.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// InitDatabase initializes the database with error handling
func InitDatabase() *sql.DB {
	db, err := InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return db
}
