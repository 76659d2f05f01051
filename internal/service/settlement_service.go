package service

import (
	"context"
	"fmt"

	"campusbank/internal/fees"
	"campusbank/internal/logger"
	"campusbank/internal/repository"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementService validates and applies balance-changing operations:
// business-initiated card and barcode purchases and administrative fund
// management. Each operation either fully settles or returns a specific
// failure; the balance check itself always happens inside the ledger
// repository, under the same lock as the mutation.
type SettlementService interface {
	CardPayment(ctx context.Context, req *models.CardPaymentRequest) (*models.PaymentReceipt, error)
	BarcodePayment(ctx context.Context, req *models.BarcodePaymentRequest) (*models.PaymentReceipt, error)
	// ManageFunds deposits into or withdraws from any account on behalf of
	// an admin, whose own account is recorded as the counterparty.
	ManageFunds(ctx context.Context, targetAccountID uuid.UUID, req *models.ManageFundsRequest) (*models.Account, error)
	// QuoteFee computes the tiered service fee for the review step. The fee
	// is never posted; collecting it into a house account is a deliberate
	// extension point.
	QuoteFee(rawAmount string) (*models.FeeQuote, error)
	Ledger(ctx context.Context) ([]*models.Posting, error)
}

type settlementService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	logger      *logger.Logger
}

func NewSettlementService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
) SettlementService {
	return &settlementService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger.NewFromEnv(),
	}
}

func (s *settlementService) CardPayment(ctx context.Context, req *models.CardPaymentRequest) (*models.PaymentReceipt, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	payer, err := s.accountRepo.GetByCardNumber(ctx, req.CardNumber)
	if err != nil {
		return nil, err
	}

	if payer.CVV != req.CVV || payer.ExpiryDate != req.ExpiryDate {
		s.logger.Warn("Card payment rejected, credential mismatch - account_id: %s", payer.ID)
		return nil, models.ErrInvalidCredentials
	}

	return s.settlePurchase(ctx, payer, req.BusinessAccountID, amount, req.Description)
}

func (s *settlementService) BarcodePayment(ctx context.Context, req *models.BarcodePaymentRequest) (*models.PaymentReceipt, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	payer, err := s.accountRepo.GetByBarcode(ctx, req.Barcode)
	if err != nil {
		return nil, err
	}

	if payer.BarcodeDisabled {
		return nil, fmt.Errorf("barcode payments are disabled for this account: %w", models.ErrInvalidOperation)
	}

	if payer.CVV != req.CVV {
		s.logger.Warn("Barcode payment rejected, credential mismatch - account_id: %s", payer.ID)
		return nil, models.ErrInvalidCredentials
	}

	return s.settlePurchase(ctx, payer, req.BusinessAccountID, amount, req.Description)
}

func (s *settlementService) settlePurchase(ctx context.Context, payer *models.Account, rawBusinessID string, amount decimal.Decimal, description string) (*models.PaymentReceipt, error) {
	if payer.Frozen {
		return nil, fmt.Errorf("account is frozen: %w", models.ErrInvalidOperation)
	}
	if payer.PurchaseLimit != nil && amount.GreaterThan(*payer.PurchaseLimit) {
		return nil, fmt.Errorf("amount exceeds the per-purchase limit of %s: %w",
			payer.PurchaseLimit, models.ErrInvalidOperation)
	}

	businessID, err := uuid.Parse(rawBusinessID)
	if err != nil {
		return nil, fmt.Errorf("malformed business account id: %w", models.ErrInvalidOperation)
	}
	business, err := s.accountRepo.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.ID == payer.ID {
		return nil, fmt.Errorf("a business cannot charge its own account: %w", models.ErrInvalidOperation)
	}

	if description == "" {
		description = "Purchase at " + business.HolderName
	}

	transactionID := uuid.New()
	if err := s.ledgerRepo.Purchase(ctx, payer.ID, business.ID, amount, transactionID, description); err != nil {
		return nil, err
	}

	s.logger.Info("Purchase settled - transaction_id: %s amount: %s", transactionID, amount)
	return &models.PaymentReceipt{
		TransactionID: transactionID,
		Amount:        amount,
		Fee:           fees.ServiceFee(amount),
		Description:   description,
	}, nil
}

func (s *settlementService) ManageFunds(ctx context.Context, targetAccountID uuid.UUID, req *models.ManageFundsRequest) (*models.Account, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	adminUserID, err := uuid.Parse(req.AdminUserID)
	if err != nil {
		return nil, fmt.Errorf("malformed admin user id: %w", models.ErrInvalidOperation)
	}
	admin, err := s.userRepo.GetByID(ctx, adminUserID)
	if err != nil {
		return nil, err
	}
	if admin.Role != models.RoleAdmin {
		return nil, fmt.Errorf("user %s is not an admin: %w", admin.Username, models.ErrUnauthorized)
	}
	adminAccount, err := s.accountRepo.GetByUserID(ctx, admin.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.accountRepo.GetByID(ctx, targetAccountID); err != nil {
		return nil, err
	}

	transactionID := uuid.New()
	switch req.Operation {
	case "deposit":
		err = s.ledgerRepo.Deposit(ctx, targetAccountID, adminAccount.ID, amount, transactionID,
			"Deposit by admin "+admin.Name)
	case "withdraw":
		err = s.ledgerRepo.Withdraw(ctx, targetAccountID, adminAccount.ID, amount, transactionID,
			"Withdrawal by admin "+admin.Name)
	default:
		err = fmt.Errorf("unknown operation %q: %w", req.Operation, models.ErrInvalidOperation)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fund management settled - transaction_id: %s operation: %s", transactionID, req.Operation)
	return s.accountRepo.GetByID(ctx, targetAccountID)
}

func (s *settlementService) QuoteFee(rawAmount string) (*models.FeeQuote, error) {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	fee := fees.ServiceFee(amount)
	return &models.FeeQuote{
		Amount: amount,
		Fee:    fee,
		Total:  amount.Add(fee),
	}, nil
}

func (s *settlementService) Ledger(ctx context.Context) ([]*models.Posting, error) {
	return s.ledgerRepo.ListAll(ctx)
}
