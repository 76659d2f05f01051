package service

import (
	"context"
	"errors"
	"fmt"

	"campusbank/internal/cardgen"
	"campusbank/internal/logger"
	"campusbank/internal/repository"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// AccountService covers account issuance and everything a cardholder can
// change about their own account and credentials.
type AccountService interface {
	IssueAccount(ctx context.Context, req *models.IssueAccountRequest) (*models.IssuedAccountResponse, error)
	IssueAdmin(ctx context.Context, req *models.IssueAdminRequest) (*models.IssuedAccountResponse, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]*models.Posting, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, req *models.UpdateUsernameRequest) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, req *models.UpdatePasswordRequest) error
	RegenerateCard(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	SetFrozen(ctx context.Context, accountID uuid.UUID, frozen bool) error
	SetPurchaseLimit(ctx context.Context, accountID uuid.UUID, limit *string) error
	SetBarcodeDisabled(ctx context.Context, accountID uuid.UUID, disabled bool) error
}

type accountService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	cards       cardgen.Generator
	logger      *logger.Logger
}

func NewAccountService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	cards cardgen.Generator,
) AccountService {
	return &accountService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		cards:       cards,
		logger:      logger.NewFromEnv(),
	}
}

func (s *accountService) IssueAccount(ctx context.Context, req *models.IssueAccountRequest) (*models.IssuedAccountResponse, error) {
	role := models.Role(req.Role)
	if role != models.RoleUser && role != models.RoleBusiness {
		return nil, fmt.Errorf("role %q cannot be issued here: %w", req.Role, models.ErrInvalidOperation)
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		opening, err = parseNonNegativeAmount(req.OpeningBalance)
		if err != nil {
			return nil, fmt.Errorf("invalid opening balance: %w", err)
		}
	}

	return s.issue(ctx, role, req.Name, req.Username, req.Password, req.Email, req.PhoneNumber, opening)
}

func (s *accountService) IssueAdmin(ctx context.Context, req *models.IssueAdminRequest) (*models.IssuedAccountResponse, error) {
	return s.issue(ctx, models.RoleAdmin, req.Name, req.Username, req.Password, req.Email, "", decimal.Zero)
}

func (s *accountService) issue(ctx context.Context, role models.Role, name, username, password, email, phone string, opening decimal.Decimal) (*models.IssuedAccountResponse, error) {
	entry := s.logger.WithFields(map[string]interface{}{
		"username": username,
		"role":     role,
	})

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username %q taken: %w", username, models.ErrDuplicate)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	// The generator is the fallible collaborator: it runs before any record
	// is written so a failed call leaves no partial user or account behind.
	details, err := s.cards.Generate(ctx, name)
	if err != nil {
		entry.Error("Card detail generation failed: %v", err)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Name:         name,
		Email:        email,
		PhoneNumber:  phone,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:          uuid.New(),
		UserID:      user.ID,
		HolderName:  name,
		Email:       email,
		PhoneNumber: phone,
		CardNumber:  details.CardNumber,
		CVV:         details.CVV,
		ExpiryDate:  details.ExpiryDate,
		Barcode:     details.Barcode,
		Balance:     decimal.Zero,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	if opening.IsPositive() {
		if err := s.ledgerRepo.Deposit(ctx, account.ID, uuid.Nil, opening, uuid.New(), "Opening balance"); err != nil {
			return nil, fmt.Errorf("failed to post opening balance: %w", err)
		}
		account.Balance = opening
	}

	entry.Info("Account issued - account_id: %s", account.ID)
	return &models.IssuedAccountResponse{User: user, Account: account}, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

func (s *accountService) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]*models.Posting, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListByAccount(ctx, accountID)
}

func (s *accountService) UpdateUsername(ctx context.Context, userID uuid.UUID, req *models.UpdateUsernameRequest) error {
	return s.userRepo.UpdateUsername(ctx, userID, req.Username)
}

func (s *accountService) UpdatePassword(ctx context.Context, userID uuid.UUID, req *models.UpdatePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return fmt.Errorf("current password mismatch: %w", models.ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *accountService) RegenerateCard(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// On generator failure the account keeps its current card.
	details, err := s.cards.Generate(ctx, account.HolderName)
	if err != nil {
		s.logger.Error("Card detail generation failed for account %s: %v", accountID, err)
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}

	if err := s.accountRepo.UpdateCardDetails(ctx, accountID, details.CardNumber, details.CVV, details.ExpiryDate, details.Barcode); err != nil {
		return nil, err
	}

	return s.accountRepo.GetByID(ctx, accountID)
}

func (s *accountService) SetFrozen(ctx context.Context, accountID uuid.UUID, frozen bool) error {
	return s.accountRepo.SetFrozen(ctx, accountID, frozen)
}

func (s *accountService) SetPurchaseLimit(ctx context.Context, accountID uuid.UUID, limit *string) error {
	if limit == nil {
		return s.accountRepo.SetPurchaseLimit(ctx, accountID, nil)
	}

	value, err := parseAmount(*limit)
	if err != nil {
		return fmt.Errorf("invalid purchase limit: %w", err)
	}
	return s.accountRepo.SetPurchaseLimit(ctx, accountID, &value)
}

func (s *accountService) SetBarcodeDisabled(ctx context.Context, accountID uuid.UUID, disabled bool) error {
	return s.accountRepo.SetBarcodeDisabled(ctx, accountID, disabled)
}
