package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campusbank/internal/logger"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRepository owns the append-only posting log and every balance
// mutation. Each money movement is validated and applied inside a single SQL
// transaction with the touched account rows locked, so a balance can never
// be spent twice past the same check.
type LedgerRepository interface {
	// Deposit credits an account. counterpartyID, when not uuid.Nil, is
	// recorded as the source side of the posting.
	Deposit(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error
	// Withdraw debits an account, failing with models.ErrInsufficientFunds
	// when the balance would go negative.
	Withdraw(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error
	// Purchase atomically debits the payer and credits the business,
	// recording a purchase posting pair under one transaction id.
	Purchase(ctx context.Context, payerAccountID, businessAccountID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Posting, error)
	ListAll(ctx context.Context) ([]*models.Posting, error)
}

type ledgerRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{
		db:     db,
		logger: logger.NewFromEnv(),
	}
}

// lockAccountForUpdate reads an account row and holds a row lock on it until
// the surrounding transaction ends.
func lockAccountForUpdate(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = $1 FOR UPDATE"

	account, err := scanAccount(tx.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	return account, nil
}

// lockAccountPair locks two account rows, lower id first, to keep concurrent
// settlements from deadlocking against each other.
func lockAccountPair(ctx context.Context, tx *sql.Tx, firstID, secondID uuid.UUID) (*models.Account, *models.Account, error) {
	if firstID.String() < secondID.String() {
		first, err := lockAccountForUpdate(ctx, tx, firstID)
		if err != nil {
			return nil, nil, err
		}
		second, err := lockAccountForUpdate(ctx, tx, secondID)
		if err != nil {
			return nil, nil, err
		}
		return first, second, nil
	}

	second, err := lockAccountForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}
	first, err := lockAccountForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		balance, accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func insertPosting(ctx context.Context, tx *sql.Tx, p *models.Posting) error {
	var from, to uuid.NullUUID
	if p.FromAccountID != nil {
		from = uuid.NullUUID{UUID: *p.FromAccountID, Valid: true}
	}
	if p.ToAccountID != nil {
		to = uuid.NullUUID{UUID: *p.ToAccountID, Valid: true}
	}

	query := `
		INSERT INTO postings (transaction_id, account_id, amount, type, description, from_account_id, to_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := tx.QueryRowContext(ctx, query,
		p.TransactionID, p.AccountID, p.Amount, p.Type, p.Description, from, to,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert posting: %w", err)
	}
	return nil
}

func (r *ledgerRepository) Deposit(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"account_id":     accountID,
		"amount":         amount,
	})
	entry.Debug("Starting deposit")

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := lockAccountForUpdate(ctx, tx, accountID)
	if err != nil {
		return err
	}

	if err := updateBalance(ctx, tx, accountID, account.Balance.Add(amount)); err != nil {
		return err
	}

	posting := &models.Posting{
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		Type:          models.PostingDeposit,
		Description:   description,
		ToAccountID:   &accountID,
	}
	if counterpartyID != uuid.Nil {
		posting.FromAccountID = &counterpartyID
	}
	if err := insertPosting(ctx, tx, posting); err != nil {
		return err
	}

	entry.Info("Deposit settled")
	return tx.Commit()
}

func (r *ledgerRepository) Withdraw(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"account_id":     accountID,
		"amount":         amount,
	})
	entry.Debug("Starting withdrawal")

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := lockAccountForUpdate(ctx, tx, accountID)
	if err != nil {
		return err
	}

	if account.Balance.LessThan(amount) {
		entry.Warn("Insufficient balance: balance=%s requested=%s", account.Balance, amount)
		return models.ErrInsufficientFunds
	}

	if err := updateBalance(ctx, tx, accountID, account.Balance.Sub(amount)); err != nil {
		return err
	}

	posting := &models.Posting{
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount.Neg(),
		Type:          models.PostingWithdrawal,
		Description:   description,
		FromAccountID: &accountID,
	}
	if counterpartyID != uuid.Nil {
		posting.ToAccountID = &counterpartyID
	}
	if err := insertPosting(ctx, tx, posting); err != nil {
		return err
	}

	entry.Info("Withdrawal settled")
	return tx.Commit()
}

func (r *ledgerRepository) Purchase(ctx context.Context, payerAccountID, businessAccountID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"transaction_id":      transactionID,
		"payer_account_id":    payerAccountID,
		"business_account_id": businessAccountID,
		"amount":              amount,
	})
	entry.Debug("Starting purchase settlement")

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payer, business, err := lockAccountPair(ctx, tx, payerAccountID, businessAccountID)
	if err != nil {
		entry.Error("Failed to lock accounts: %v", err)
		return err
	}

	if payer.Balance.LessThan(amount) {
		entry.Warn("Insufficient balance: balance=%s requested=%s", payer.Balance, amount)
		return models.ErrInsufficientFunds
	}

	if err := updateBalance(ctx, tx, payerAccountID, payer.Balance.Sub(amount)); err != nil {
		return err
	}
	if err := updateBalance(ctx, tx, businessAccountID, business.Balance.Add(amount)); err != nil {
		return err
	}

	legs := []*models.Posting{
		{
			TransactionID: transactionID,
			AccountID:     payerAccountID,
			Amount:        amount.Neg(),
			Type:          models.PostingPurchase,
			Description:   description,
			FromAccountID: &payerAccountID,
			ToAccountID:   &businessAccountID,
		},
		{
			TransactionID: transactionID,
			AccountID:     businessAccountID,
			Amount:        amount,
			Type:          models.PostingPurchase,
			Description:   description,
			FromAccountID: &payerAccountID,
			ToAccountID:   &businessAccountID,
		},
	}
	for _, leg := range legs {
		if err := insertPosting(ctx, tx, leg); err != nil {
			return err
		}
	}

	entry.Info("Purchase settled")
	return tx.Commit()
}

const postingColumns = `id, transaction_id, account_id, amount, type, description,
	from_account_id, to_account_id, created_at`

func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Posting, error) {
	query := "SELECT " + postingColumns + ` FROM postings
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	return collectPostings(rows)
}

func (r *ledgerRepository) ListAll(ctx context.Context) ([]*models.Posting, error) {
	query := "SELECT " + postingColumns + " FROM postings ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	return collectPostings(rows)
}

func collectPostings(rows *sql.Rows) ([]*models.Posting, error) {
	postings := []*models.Posting{}
	for rows.Next() {
		p := &models.Posting{}
		var from, to uuid.NullUUID
		err := rows.Scan(&p.ID, &p.TransactionID, &p.AccountID, &p.Amount, &p.Type,
			&p.Description, &from, &to, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		if from.Valid {
			p.FromAccountID = &from.UUID
		}
		if to.Valid {
			p.ToAccountID = &to.UUID
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate postings: %w", err)
	}
	return postings, nil
}
