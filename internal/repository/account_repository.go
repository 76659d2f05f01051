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

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	GetByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Account, error)
	UpdateCardDetails(ctx context.Context, id uuid.UUID, cardNumber, cvv, expiryDate, barcode string) error
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error
	SetPurchaseLimit(ctx context.Context, id uuid.UUID, limit *decimal.Decimal) error
	SetBarcodeDisabled(ctx context.Context, id uuid.UUID, disabled bool) error
}

type accountRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger.NewFromEnv(),
	}
}

const accountColumns = `id, user_id, holder_name, email, phone_number, card_number, cvv,
	expiry_date, barcode, balance, frozen, purchase_limit, barcode_disabled, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var limit decimal.NullDecimal
	err := row.Scan(
		&account.ID, &account.UserID, &account.HolderName, &account.Email, &account.PhoneNumber,
		&account.CardNumber, &account.CVV, &account.ExpiryDate, &account.Barcode,
		&account.Balance, &account.Frozen, &limit, &account.BarcodeDisabled,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if limit.Valid {
		account.PurchaseLimit = &limit.Decimal
	}
	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"account_id": account.ID,
		"user_id":    account.UserID,
	})

	var limit decimal.NullDecimal
	if account.PurchaseLimit != nil {
		limit = decimal.NullDecimal{Decimal: *account.PurchaseLimit, Valid: true}
	}

	query := `
		INSERT INTO accounts (id, user_id, holder_name, email, phone_number, card_number,
			cvv, expiry_date, barcode, balance, frozen, purchase_limit, barcode_disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.UserID, account.HolderName, account.Email, account.PhoneNumber,
		account.CardNumber, account.CVV, account.ExpiryDate, account.Barcode,
		account.Balance, account.Frozen, limit, account.BarcodeDisabled,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			entry.Warn("Account conflicts with an existing card number or barcode")
			return fmt.Errorf("card number or barcode taken: %w", models.ErrDuplicate)
		}
		entry.Error("Failed to insert account: %v", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	entry.Debug("Account created")
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, "user_id = $1", userID)
}

func (r *accountRepository) GetByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	return r.getOne(ctx, "card_number = $1", cardNumber)
}

func (r *accountRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Account, error) {
	return r.getOne(ctx, "barcode = $1", barcode)
}

func (r *accountRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE " + where

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (r *accountRepository) UpdateCardDetails(ctx context.Context, id uuid.UUID, cardNumber, cvv, expiryDate, barcode string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET card_number = $1, cvv = $2, expiry_date = $3, barcode = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`,
		cardNumber, cvv, expiryDate, barcode, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card number or barcode taken: %w", models.ErrDuplicate)
		}
		return fmt.Errorf("failed to update card details: %w", err)
	}
	return requireOneRow(result)
}

func (r *accountRepository) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	return r.setFlag(ctx, "frozen", frozen, id)
}

func (r *accountRepository) SetBarcodeDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return r.setFlag(ctx, "barcode_disabled", disabled, id)
}

func (r *accountRepository) setFlag(ctx context.Context, column string, value bool, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET "+column+" = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		value, id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return requireOneRow(result)
}

func (r *accountRepository) SetPurchaseLimit(ctx context.Context, id uuid.UUID, limit *decimal.Decimal) error {
	var value decimal.NullDecimal
	if limit != nil {
		value = decimal.NullDecimal{Decimal: *limit, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET purchase_limit = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
		value, id)
	if err != nil {
		return fmt.Errorf("failed to update purchase limit: %w", err)
	}
	return requireOneRow(result)
}
