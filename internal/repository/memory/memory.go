// Package memory provides an in-memory implementation of the repository
// interfaces, used as the test double and as the zero-setup demo store.
// One mutex serializes every operation, so each settlement's check and
// apply happen as a unit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campusbank/internal/repository"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	accounts      map[uuid.UUID]*models.Account
	postings      []*models.Posting
	transfers     map[uuid.UUID]*models.PendingTransfer
	nextPostingID int64
}

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*models.User),
		accounts:  make(map[uuid.UUID]*models.Account),
		transfers: make(map[uuid.UUID]*models.PendingTransfer),
	}
}

func (s *Store) Users() repository.UserRepository         { return &userStore{s} }
func (s *Store) Accounts() repository.AccountRepository   { return &accountStore{s} }
func (s *Store) Ledger() repository.LedgerRepository      { return &ledgerStore{s} }
func (s *Store) Transfers() repository.TransferRepository { return &transferStore{s} }

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func copyAccount(a *models.Account) *models.Account {
	cp := *a
	if a.PurchaseLimit != nil {
		limit := *a.PurchaseLimit
		cp.PurchaseLimit = &limit
	}
	return &cp
}

func copyPosting(p *models.Posting) *models.Posting {
	cp := *p
	if p.FromAccountID != nil {
		from := *p.FromAccountID
		cp.FromAccountID = &from
	}
	if p.ToAccountID != nil {
		to := *p.ToAccountID
		cp.ToAccountID = &to
	}
	return &cp
}

func copyTransfer(t *models.PendingTransfer) *models.PendingTransfer {
	cp := *t
	if t.ResolvedAt != nil {
		at := *t.ResolvedAt
		cp.ResolvedAt = &at
	}
	return &cp
}

type userStore struct{ s *Store }

func (r *userStore) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return fmt.Errorf("username or email taken: %w", models.ErrDuplicate)
		}
	}

	user.CreatedAt = time.Now()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *userStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return copyUser(user), nil
}

func (r *userStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Username == username {
			return copyUser(user), nil
		}
	}
	return nil, fmt.Errorf("user: %w", models.ErrNotFound)
}

func (r *userStore) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	for otherID, other := range r.s.users {
		if otherID != id && other.Username == username {
			return fmt.Errorf("username taken: %w", models.ErrDuplicate)
		}
	}
	user.Username = username
	return nil
}

func (r *userStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

type accountStore struct{ s *Store }

func (r *accountStore) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.CardNumber == account.CardNumber || existing.Barcode == account.Barcode {
			return fmt.Errorf("card number or barcode taken: %w", models.ErrDuplicate)
		}
	}

	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	r.s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (r *accountStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.lookupAccount(id)
}

func (s *Store) lookupAccount(id uuid.UUID) (*models.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account: %w", models.ErrNotFound)
	}
	return copyAccount(account), nil
}

func (r *accountStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, account := range r.s.accounts {
		if account.UserID == userID {
			return copyAccount(account), nil
		}
	}
	return nil, fmt.Errorf("account: %w", models.ErrNotFound)
}

func (r *accountStore) GetByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, account := range r.s.accounts {
		if account.CardNumber == cardNumber {
			return copyAccount(account), nil
		}
	}
	return nil, fmt.Errorf("account: %w", models.ErrNotFound)
}

func (r *accountStore) GetByBarcode(ctx context.Context, barcode string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, account := range r.s.accounts {
		if account.Barcode == barcode {
			return copyAccount(account), nil
		}
	}
	return nil, fmt.Errorf("account: %w", models.ErrNotFound)
}

func (r *accountStore) UpdateCardDetails(ctx context.Context, id uuid.UUID, cardNumber, cvv, expiryDate, barcode string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	for otherID, other := range r.s.accounts {
		if otherID != id && (other.CardNumber == cardNumber || other.Barcode == barcode) {
			return fmt.Errorf("card number or barcode taken: %w", models.ErrDuplicate)
		}
	}
	account.CardNumber = cardNumber
	account.CVV = cvv
	account.ExpiryDate = expiryDate
	account.Barcode = barcode
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountStore) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	account.Frozen = frozen
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountStore) SetPurchaseLimit(ctx context.Context, id uuid.UUID, limit *decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	if limit == nil {
		account.PurchaseLimit = nil
	} else {
		value := *limit
		account.PurchaseLimit = &value
	}
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountStore) SetBarcodeDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	account.BarcodeDisabled = disabled
	account.UpdatedAt = time.Now()
	return nil
}

type ledgerStore struct{ s *Store }

func (s *Store) appendPosting(p *models.Posting) {
	s.nextPostingID++
	p.ID = s.nextPostingID
	p.CreatedAt = time.Now()
	s.postings = append(s.postings, copyPosting(p))
}

func (r *ledgerStore) Deposit(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}

	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = time.Now()

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
	r.s.appendPosting(posting)
	return nil
}

func (r *ledgerStore) Withdraw(ctx context.Context, accountID, counterpartyID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
	}
	if account.Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(amount)
	account.UpdatedAt = time.Now()

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
	r.s.appendPosting(posting)
	return nil
}

func (r *ledgerStore) Purchase(ctx context.Context, payerAccountID, businessAccountID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	payer, ok := r.s.accounts[payerAccountID]
	if !ok {
		return fmt.Errorf("account %s: %w", payerAccountID, models.ErrNotFound)
	}
	business, ok := r.s.accounts[businessAccountID]
	if !ok {
		return fmt.Errorf("account %s: %w", businessAccountID, models.ErrNotFound)
	}
	if payer.Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}

	now := time.Now()
	payer.Balance = payer.Balance.Sub(amount)
	payer.UpdatedAt = now
	business.Balance = business.Balance.Add(amount)
	business.UpdatedAt = now

	r.s.appendPosting(&models.Posting{
		TransactionID: transactionID,
		AccountID:     payerAccountID,
		Amount:        amount.Neg(),
		Type:          models.PostingPurchase,
		Description:   description,
		FromAccountID: &payerAccountID,
		ToAccountID:   &businessAccountID,
	})
	r.s.appendPosting(&models.Posting{
		TransactionID: transactionID,
		AccountID:     businessAccountID,
		Amount:        amount,
		Type:          models.PostingPurchase,
		Description:   description,
		FromAccountID: &payerAccountID,
		ToAccountID:   &businessAccountID,
	})
	return nil
}

func (r *ledgerStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Posting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Newest first.
	postings := []*models.Posting{}
	for i := len(r.s.postings) - 1; i >= 0; i-- {
		if r.s.postings[i].AccountID == accountID {
			postings = append(postings, copyPosting(r.s.postings[i]))
		}
	}
	return postings, nil
}

func (r *ledgerStore) ListAll(ctx context.Context) ([]*models.Posting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	postings := make([]*models.Posting, 0, len(r.s.postings))
	for i := len(r.s.postings) - 1; i >= 0; i-- {
		postings = append(postings, copyPosting(r.s.postings[i]))
	}
	return postings, nil
}

type transferStore struct{ s *Store }

func (r *transferStore) Create(ctx context.Context, transfer *models.PendingTransfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transfer.InitiatedAt = time.Now()
	r.s.transfers[transfer.ID] = copyTransfer(transfer)
	return nil
}

func (r *transferStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transfer, ok := r.s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("pending transfer: %w", models.ErrNotFound)
	}
	return copyTransfer(transfer), nil
}

func (r *transferStore) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*models.PendingTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transfers := []*models.PendingTransfer{}
	for _, t := range r.s.transfers {
		if t.Status == models.TransferPending && t.IsParty(userID) {
			transfers = append(transfers, copyTransfer(t))
		}
	}
	return transfers, nil
}

func (r *transferStore) Resolve(ctx context.Context, id uuid.UUID, status models.TransferStatus, note string) (*models.PendingTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transfer, ok := r.s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("pending transfer: %w", models.ErrNotFound)
	}
	if transfer.Resolved() {
		return nil, models.ErrAlreadyResolved
	}

	now := time.Now()
	transfer.Status = status
	transfer.Note = note
	transfer.ResolvedAt = &now
	return copyTransfer(transfer), nil
}

func (r *transferStore) Settle(ctx context.Context, id uuid.UUID, transactionID uuid.UUID, note string) (*models.PendingTransfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transfer, ok := r.s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("pending transfer: %w", models.ErrNotFound)
	}
	if transfer.Resolved() {
		return nil, models.ErrAlreadyResolved
	}

	now := time.Now()
	fail := func(failNote string) {
		transfer.Status = models.TransferFailed
		transfer.Note = failNote
		transfer.ResolvedAt = &now
	}

	sender, senderOK := r.s.accounts[transfer.SenderAccountID]
	recipient, recipientOK := r.s.accounts[transfer.RecipientAccountID]
	if !senderOK || !recipientOK {
		fail("account no longer available")
		return nil, fmt.Errorf("account: %w", models.ErrNotFound)
	}

	if sender.Balance.LessThan(transfer.Amount) {
		fail("insufficient funds at approval time")
		return nil, models.ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(transfer.Amount)
	sender.UpdatedAt = now
	recipient.Balance = recipient.Balance.Add(transfer.Amount)
	recipient.UpdatedAt = now

	r.s.appendPosting(&models.Posting{
		TransactionID: transactionID,
		AccountID:     sender.ID,
		Amount:        transfer.Amount.Neg(),
		Type:          models.PostingTransfer,
		Description:   "Transfer to " + transfer.RecipientUsername,
		FromAccountID: &sender.ID,
		ToAccountID:   &recipient.ID,
	})
	r.s.appendPosting(&models.Posting{
		TransactionID: transactionID,
		AccountID:     recipient.ID,
		Amount:        transfer.Amount,
		Type:          models.PostingTransfer,
		Description:   "Transfer from " + transfer.SenderName,
		FromAccountID: &sender.ID,
		ToAccountID:   &recipient.ID,
	})

	transfer.Status = models.TransferApproved
	transfer.Note = note
	transfer.ResolvedAt = &now
	return copyTransfer(transfer), nil
}
