package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

func NewConnection(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

// RunMigrations creates the schema if it does not exist. Exported so the
// test harness can apply the same DDL to a throwaway database.
func RunMigrations(db *sql.DB) error {

	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(10) NOT NULL,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		phone_number VARCHAR(20) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);`

	accountsTable := `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id UUID UNIQUE NOT NULL REFERENCES users(id),
		holder_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone_number VARCHAR(20) NOT NULL DEFAULT '',
		card_number VARCHAR(19) UNIQUE NOT NULL,
		cvv VARCHAR(4) NOT NULL,
		expiry_date VARCHAR(5) NOT NULL,
		barcode VARCHAR(8) UNIQUE NOT NULL,
		balance DECIMAL(15,2) NOT NULL DEFAULT 0,
		frozen BOOLEAN NOT NULL DEFAULT FALSE,
		purchase_limit DECIMAL(15,2),
		barcode_disabled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);`

	postingsTable := `
	CREATE TABLE IF NOT EXISTS postings (
		id SERIAL PRIMARY KEY,
		transaction_id UUID NOT NULL,
		account_id UUID NOT NULL REFERENCES accounts(id),
		amount DECIMAL(15,2) NOT NULL,
		type VARCHAR(20) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		from_account_id UUID,
		to_account_id UUID,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);`

	pendingTransfersTable := `
	CREATE TABLE IF NOT EXISTS pending_transfers (
		id UUID PRIMARY KEY,
		kind VARCHAR(10) NOT NULL,
		sender_user_id UUID NOT NULL REFERENCES users(id),
		sender_account_id UUID NOT NULL REFERENCES accounts(id),
		sender_name VARCHAR(100) NOT NULL,
		recipient_user_id UUID NOT NULL REFERENCES users(id),
		recipient_account_id UUID NOT NULL REFERENCES accounts(id),
		recipient_username VARCHAR(50) NOT NULL,
		amount DECIMAL(15,2) NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'pending',
		note TEXT NOT NULL DEFAULT '',
		initiated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		resolved_at TIMESTAMP WITH TIME ZONE
	);`

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_accounts_card_number ON accounts(card_number);",
		"CREATE INDEX IF NOT EXISTS idx_accounts_barcode ON accounts(barcode);",
		"CREATE INDEX IF NOT EXISTS idx_postings_account_id ON postings(account_id);",
		"CREATE INDEX IF NOT EXISTS idx_postings_transaction_id ON postings(transaction_id);",
		"CREATE INDEX IF NOT EXISTS idx_pending_transfers_status ON pending_transfers(status);",
		"CREATE INDEX IF NOT EXISTS idx_pending_transfers_sender_user_id ON pending_transfers(sender_user_id);",
		"CREATE INDEX IF NOT EXISTS idx_pending_transfers_recipient_user_id ON pending_transfers(recipient_user_id);",
	}

	migrations := []string{usersTable, accountsTable, postingsTable, pendingTransfersTable}
	migrations = append(migrations, indexes...)

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
