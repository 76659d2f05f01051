package service

import (
	"context"
	"fmt"

	"campusbank/internal/logger"
	"campusbank/internal/repository"
	"campusbank/models"

	"github.com/google/uuid"
)

// TransferService runs the pending-transfer lifecycle. A transfer and a
// money request share one entity shape: the sender side is always the party
// that gets debited on approval, so a request stores the payer as sender and
// the requester as recipient, with Kind discriminating the two flows.
type TransferService interface {
	InitiateTransfer(ctx context.Context, req *models.InitiateTransferRequest) (*models.PendingTransfer, error)
	InitiateRequest(ctx context.Context, req *models.InitiateRequestRequest) (*models.PendingTransfer, error)
	Approve(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error)
	Reject(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error)
	Cancel(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*models.PendingTransfer, error)
}

type transferService struct {
	userRepo     repository.UserRepository
	accountRepo  repository.AccountRepository
	transferRepo repository.TransferRepository
	logger       *logger.Logger
}

func NewTransferService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	transferRepo repository.TransferRepository,
) TransferService {
	return &transferService{
		userRepo:     userRepo,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		logger:       logger.NewFromEnv(),
	}
}

func (s *transferService) InitiateTransfer(ctx context.Context, req *models.InitiateTransferRequest) (*models.PendingTransfer, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	senderUserID, err := uuid.Parse(req.SenderUserID)
	if err != nil {
		return nil, fmt.Errorf("malformed sender user id: %w", models.ErrInvalidOperation)
	}

	sender, err := s.userRepo.GetByID(ctx, senderUserID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.userRepo.GetByUsername(ctx, req.RecipientUsername)
	if err != nil {
		return nil, err
	}
	if sender.ID == recipient.ID {
		return nil, fmt.Errorf("cannot transfer to yourself: %w", models.ErrInvalidOperation)
	}

	transfer, err := s.open(ctx, models.KindTransfer, sender, recipient,
		"Awaiting approval from "+recipient.Username)
	if err != nil {
		return nil, err
	}
	transfer.Amount = amount
	return s.create(ctx, transfer)
}

func (s *transferService) InitiateRequest(ctx context.Context, req *models.InitiateRequestRequest) (*models.PendingTransfer, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	requesterUserID, err := uuid.Parse(req.RequesterUserID)
	if err != nil {
		return nil, fmt.Errorf("malformed requester user id: %w", models.ErrInvalidOperation)
	}

	requester, err := s.userRepo.GetByID(ctx, requesterUserID)
	if err != nil {
		return nil, err
	}
	payer, err := s.userRepo.GetByUsername(ctx, req.PayerUsername)
	if err != nil {
		return nil, err
	}
	if requester.ID == payer.ID {
		return nil, fmt.Errorf("cannot request money from yourself: %w", models.ErrInvalidOperation)
	}

	// The payer is the sender side: that account gets debited on approval.
	transfer, err := s.open(ctx, models.KindRequest, payer, requester,
		"Requested by "+requester.Username)
	if err != nil {
		return nil, err
	}
	transfer.Amount = amount
	return s.create(ctx, transfer)
}

// open resolves both parties' accounts and assembles a pending item with the
// debited side as sender.
func (s *transferService) open(ctx context.Context, kind models.TransferKind, sender, recipient *models.User, note string) (*models.PendingTransfer, error) {
	senderAccount, err := s.accountRepo.GetByUserID(ctx, sender.ID)
	if err != nil {
		return nil, err
	}
	recipientAccount, err := s.accountRepo.GetByUserID(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}

	return &models.PendingTransfer{
		ID:                 uuid.New(),
		Kind:               kind,
		SenderUserID:       sender.ID,
		SenderAccountID:    senderAccount.ID,
		SenderName:         sender.Name,
		RecipientUserID:    recipient.ID,
		RecipientAccountID: recipientAccount.ID,
		RecipientUsername:  recipient.Username,
		Status:             models.TransferPending,
		Note:               note,
	}, nil
}

func (s *transferService) create(ctx context.Context, transfer *models.PendingTransfer) (*models.PendingTransfer, error) {
	// Advisory only: the balance can change before approval and is
	// re-checked under a lock at settlement time.
	senderAccount, err := s.accountRepo.GetByID(ctx, transfer.SenderAccountID)
	if err != nil {
		return nil, err
	}
	if senderAccount.Balance.LessThan(transfer.Amount) {
		return nil, models.ErrInsufficientFunds
	}

	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	s.logger.Info("Pending %s opened - transfer_id: %s amount: %s",
		transfer.Kind, transfer.ID, transfer.Amount)
	return transfer, nil
}

func (s *transferService) Approve(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error) {
	transfer, actor, err := s.authorize(ctx, transferID, actorUserID)
	if err != nil {
		return nil, err
	}
	if transfer.Resolved() {
		return nil, models.ErrAlreadyResolved
	}

	settled, err := s.transferRepo.Settle(ctx, transferID, uuid.New(), "Approved by "+actor.Name)
	if err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}
	return settled, nil
}

func (s *transferService) Reject(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error) {
	_, actor, err := s.authorize(ctx, transferID, actorUserID)
	if err != nil {
		return nil, err
	}
	return s.transferRepo.Resolve(ctx, transferID, models.TransferRejected, "Rejected by "+actor.Name)
}

func (s *transferService) Cancel(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.InitiatorUserID() != actorUserID {
		return nil, fmt.Errorf("only the initiator may cancel: %w", models.ErrUnauthorized)
	}

	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	return s.transferRepo.Resolve(ctx, transferID, models.TransferCancelled, "Cancelled by "+actor.Name)
}

func (s *transferService) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.PendingTransfer, error) {
	return s.transferRepo.ListPendingByUser(ctx, userID)
}

// authorize loads the item and the acting user, requiring the actor to be
// one of the two parties.
func (s *transferService) authorize(ctx context.Context, transferID, actorUserID uuid.UUID) (*models.PendingTransfer, *models.User, error) {
	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, nil, err
	}
	if !transfer.IsParty(actorUserID) {
		return nil, nil, fmt.Errorf("user %s is not a party to this item: %w", actorUserID, models.ErrUnauthorized)
	}

	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, nil, err
	}
	return transfer, actor, nil
}
