package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusbank/internal/logger"
	"campusbank/models"

	"github.com/google/uuid"
)

// TransferRepository owns the pending-transfer records and their state
// machine. All terminal transitions are conditional on the row still being
// pending, taken under a row lock, so an item resolves exactly once.
type TransferRepository interface {
	Create(ctx context.Context, transfer *models.PendingTransfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PendingTransfer, error)
	ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*models.PendingTransfer, error)
	// Resolve moves a pending item to rejected or cancelled. No balances
	// move. Returns models.ErrAlreadyResolved if the item is terminal.
	Resolve(ctx context.Context, id uuid.UUID, status models.TransferStatus, note string) (*models.PendingTransfer, error)
	// Settle approves a pending item: re-resolves both accounts, re-checks
	// the sender balance, then debits, credits, and records the posting pair
	// in the same transaction that flips the status to approved. A missing
	// account or an insufficient balance moves the item to failed (terminal)
	// and surfaces models.ErrNotFound / models.ErrInsufficientFunds.
	Settle(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, note string) (*models.PendingTransfer, error)
}

type transferRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewTransferRepository(db *sql.DB) TransferRepository {
	return &transferRepository{
		db:     db,
		logger: logger.NewFromEnv(),
	}
}

const transferColumns = `id, kind, sender_user_id, sender_account_id, sender_name,
	recipient_user_id, recipient_account_id, recipient_username, amount, status, note,
	initiated_at, resolved_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (*models.PendingTransfer, error) {
	t := &models.PendingTransfer{}
	var resolvedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.Kind, &t.SenderUserID, &t.SenderAccountID, &t.SenderName,
		&t.RecipientUserID, &t.RecipientAccountID, &t.RecipientUsername,
		&t.Amount, &t.Status, &t.Note, &t.InitiatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t.ResolvedAt = &resolvedAt.Time
	}
	return t, nil
}

func (r *transferRepository) Create(ctx context.Context, transfer *models.PendingTransfer) error {
	query := `
		INSERT INTO pending_transfers (id, kind, sender_user_id, sender_account_id, sender_name,
			recipient_user_id, recipient_account_id, recipient_username, amount, status, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING initiated_at`

	err := r.db.QueryRowContext(ctx, query,
		transfer.ID, transfer.Kind, transfer.SenderUserID, transfer.SenderAccountID,
		transfer.SenderName, transfer.RecipientUserID, transfer.RecipientAccountID,
		transfer.RecipientUsername, transfer.Amount, transfer.Status, transfer.Note,
	).Scan(&transfer.InitiatedAt)

	if err != nil {
		return fmt.Errorf("failed to create pending transfer: %w", err)
	}
	return nil
}

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingTransfer, error) {
	query := "SELECT " + transferColumns + " FROM pending_transfers WHERE id = $1"

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pending transfer: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pending transfer: %w", err)
	}
	return transfer, nil
}

func (r *transferRepository) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*models.PendingTransfer, error) {
	query := "SELECT " + transferColumns + ` FROM pending_transfers
		WHERE status = 'pending' AND (sender_user_id = $1 OR recipient_user_id = $1)
		ORDER BY initiated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transfers: %w", err)
	}
	defer rows.Close()

	transfers := []*models.PendingTransfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending transfers: %w", err)
	}
	return transfers, nil
}

func (r *transferRepository) Resolve(ctx context.Context, id uuid.UUID, status models.TransferStatus, note string) (*models.PendingTransfer, error) {
	entry := r.logger.WithFields(map[string]interface{}{
		"transfer_id": id,
		"status":      status,
	})

	query := `
		UPDATE pending_transfers
		SET status = $1, note = $2, resolved_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = 'pending'
		RETURNING ` + transferColumns

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, status, note, id))
	if err != nil {
		if err == sql.ErrNoRows {
			// The item exists but is terminal, or never existed.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			entry.Warn("Item already resolved")
			return nil, models.ErrAlreadyResolved
		}
		entry.Error("Failed to resolve item: %v", err)
		return nil, fmt.Errorf("failed to resolve pending transfer: %w", err)
	}

	entry.Info("Item resolved")
	return transfer, nil
}

func (r *transferRepository) Settle(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, note string) (*models.PendingTransfer, error) {
	entry := r.logger.WithFields(map[string]interface{}{
		"transfer_id":    id,
		"transaction_id": transactionID,
	})
	entry.Debug("Starting transfer settlement")

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	transfer, err := scanTransfer(tx.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM pending_transfers WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pending transfer: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock pending transfer: %w", err)
	}

	if transfer.Resolved() {
		entry.Warn("Item already resolved: status=%s", transfer.Status)
		return nil, models.ErrAlreadyResolved
	}

	sender, recipient, err := lockAccountPair(ctx, tx, transfer.SenderAccountID, transfer.RecipientAccountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		// A vanished account is a system-detected failure, not a decision:
		// the item goes terminal so nobody retries it.
		if failErr := r.failInTx(ctx, tx, id, "account no longer available"); failErr != nil {
			return nil, failErr
		}
		entry.Warn("Settlement failed, account missing: %v", err)
		return nil, err
	}

	if sender.Balance.LessThan(transfer.Amount) {
		if failErr := r.failInTx(ctx, tx, id, "insufficient funds at approval time"); failErr != nil {
			return nil, failErr
		}
		entry.Warn("Settlement failed, insufficient funds: balance=%s amount=%s",
			sender.Balance, transfer.Amount)
		return nil, models.ErrInsufficientFunds
	}

	if err := updateBalance(ctx, tx, sender.ID, sender.Balance.Sub(transfer.Amount)); err != nil {
		return nil, err
	}
	if err := updateBalance(ctx, tx, recipient.ID, recipient.Balance.Add(transfer.Amount)); err != nil {
		return nil, err
	}

	legs := []*models.Posting{
		{
			TransactionID: transactionID,
			AccountID:     sender.ID,
			Amount:        transfer.Amount.Neg(),
			Type:          models.PostingTransfer,
			Description:   "Transfer to " + transfer.RecipientUsername,
			FromAccountID: &sender.ID,
			ToAccountID:   &recipient.ID,
		},
		{
			TransactionID: transactionID,
			AccountID:     recipient.ID,
			Amount:        transfer.Amount,
			Type:          models.PostingTransfer,
			Description:   "Transfer from " + transfer.SenderName,
			FromAccountID: &sender.ID,
			ToAccountID:   &recipient.ID,
		},
	}
	for _, leg := range legs {
		if err := insertPosting(ctx, tx, leg); err != nil {
			return nil, err
		}
	}

	settled, err := scanTransfer(tx.QueryRowContext(ctx, `
		UPDATE pending_transfers
		SET status = 'approved', note = $1, resolved_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING `+transferColumns, note, id))
	if err != nil {
		return nil, fmt.Errorf("failed to mark transfer approved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	entry.Info("Transfer settled")
	return settled, nil
}

// failInTx marks the locked item failed and commits, keeping the failure
// transition atomic with the checks that triggered it.
func (r *transferRepository) failInTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, note string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pending_transfers
		SET status = 'failed', note = $1, resolved_at = CURRENT_TIMESTAMP
		WHERE id = $2`, note, id)
	if err != nil {
		return fmt.Errorf("failed to mark transfer failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure transition: %w", err)
	}
	return nil
}
