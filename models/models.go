package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBusiness Role = "business"
	RoleUser     Role = "user"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PhoneNumber  string    `json:"phone_number,omitempty" db:"phone_number"`
	CreatedAt    time.Time `json:"-" db:"created_at"`
}

// Account carries its card details in the clear. This is a campus demo bank;
// the card data is the account's own credential surface.
type Account struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	HolderName      string           `json:"holder_name" db:"holder_name"`
	Email           string           `json:"email" db:"email"`
	PhoneNumber     string           `json:"phone_number,omitempty" db:"phone_number"`
	CardNumber      string           `json:"card_number" db:"card_number"`
	CVV             string           `json:"cvv" db:"cvv"`
	ExpiryDate      string           `json:"expiry_date" db:"expiry_date"`
	Barcode         string           `json:"barcode" db:"barcode"`
	Balance         decimal.Decimal  `json:"balance" db:"balance"`
	Frozen          bool             `json:"frozen" db:"frozen"`
	PurchaseLimit   *decimal.Decimal `json:"purchase_limit,omitempty" db:"purchase_limit"`
	BarcodeDisabled bool             `json:"barcode_disabled" db:"barcode_disabled"`
	CreatedAt       time.Time        `json:"-" db:"created_at"`
	UpdatedAt       time.Time        `json:"-" db:"updated_at"`
}

type PostingType string

const (
	PostingDeposit    PostingType = "deposit"
	PostingWithdrawal PostingType = "withdrawal"
	PostingPurchase   PostingType = "purchase"
	PostingTransfer   PostingType = "transfer"
)

// Posting is one signed ledger entry from the perspective of one account.
// A movement between two accounts produces a pair of postings sharing a
// TransactionID: negative on the debited side, positive on the credited side.
type Posting struct {
	ID            int64           `json:"-" db:"id"`
	TransactionID uuid.UUID       `json:"transaction_id" db:"transaction_id"`
	AccountID     uuid.UUID       `json:"account_id" db:"account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Type          PostingType     `json:"type" db:"type"`
	Description   string          `json:"description" db:"description"`
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty" db:"from_account_id"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty" db:"to_account_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type TransferKind string

const (
	KindTransfer TransferKind = "transfer"
	KindRequest  TransferKind = "request"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferRejected  TransferStatus = "rejected"
	TransferFailed    TransferStatus = "failed"
	TransferCancelled TransferStatus = "cancelled"
)

// PendingTransfer tracks a two-party money movement awaiting counterparty
// approval. Sender is always the side that gets debited on approval; for a
// money request that is the payer, not the party who opened the item.
type PendingTransfer struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Kind               TransferKind    `json:"kind" db:"kind"`
	SenderUserID       uuid.UUID       `json:"sender_user_id" db:"sender_user_id"`
	SenderAccountID    uuid.UUID       `json:"sender_account_id" db:"sender_account_id"`
	SenderName         string          `json:"sender_name" db:"sender_name"`
	RecipientUserID    uuid.UUID       `json:"recipient_user_id" db:"recipient_user_id"`
	RecipientAccountID uuid.UUID       `json:"recipient_account_id" db:"recipient_account_id"`
	RecipientUsername  string          `json:"recipient_username" db:"recipient_username"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Status             TransferStatus  `json:"status" db:"status"`
	Note               string          `json:"note" db:"note"`
	InitiatedAt        time.Time       `json:"initiated_at" db:"initiated_at"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Resolved reports whether the item reached a terminal state.
func (t *PendingTransfer) Resolved() bool {
	return t.Status != TransferPending
}

// InitiatorUserID is the only party allowed to cancel the item: the sender
// opened a transfer, the recipient opened a request.
func (t *PendingTransfer) InitiatorUserID() uuid.UUID {
	if t.Kind == KindRequest {
		return t.RecipientUserID
	}
	return t.SenderUserID
}

// IsParty reports whether the user is one of the two sides of the item.
func (t *PendingTransfer) IsParty(userID uuid.UUID) bool {
	return userID == t.SenderUserID || userID == t.RecipientUserID
}

type IssueAccountRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Username       string `json:"username" validate:"required,min=3,max=50"`
	Password       string `json:"password" validate:"required,min=8"`
	Email          string `json:"email" validate:"required,email"`
	PhoneNumber    string `json:"phone_number" validate:"omitempty,max=20"`
	Role           string `json:"role" validate:"required,oneof=user business"`
	OpeningBalance string `json:"opening_balance" validate:"omitempty"`
}

type IssueAdminRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
}

type IssuedAccountResponse struct {
	User    *User    `json:"user"`
	Account *Account `json:"account"`
}

type ManageFundsRequest struct {
	AdminUserID string `json:"admin_user_id" validate:"required,uuid4"`
	Operation   string `json:"operation" validate:"required,oneof=deposit withdraw"`
	Amount      string `json:"amount" validate:"required"`
}

type CardPaymentRequest struct {
	CardNumber        string `json:"card_number" validate:"required,len=16,numeric"`
	CVV               string `json:"cvv" validate:"required,len=3,numeric"`
	ExpiryDate        string `json:"expiry_date" validate:"required,len=5"`
	BusinessAccountID string `json:"business_account_id" validate:"required,uuid4"`
	Amount            string `json:"amount" validate:"required"`
	Description       string `json:"description" validate:"omitempty,max=200"`
}

type BarcodePaymentRequest struct {
	Barcode           string `json:"barcode" validate:"required,len=8,numeric"`
	CVV               string `json:"cvv" validate:"required,len=3,numeric"`
	BusinessAccountID string `json:"business_account_id" validate:"required,uuid4"`
	Amount            string `json:"amount" validate:"required"`
	Description       string `json:"description" validate:"omitempty,max=200"`
}

// PaymentReceipt reports a settled purchase. Fee is the tiered service fee
// shown for the review step; it is informational and is not posted to any
// balance.
type PaymentReceipt struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Description   string          `json:"description"`
}

type FeeQuote struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Total  decimal.Decimal `json:"total"`
}

type InitiateTransferRequest struct {
	SenderUserID      string `json:"sender_user_id" validate:"required,uuid4"`
	RecipientUsername string `json:"recipient_username" validate:"required,min=3,max=50"`
	Amount            string `json:"amount" validate:"required"`
}

type InitiateRequestRequest struct {
	RequesterUserID string `json:"requester_user_id" validate:"required,uuid4"`
	PayerUsername   string `json:"payer_username" validate:"required,min=3,max=50"`
	Amount          string `json:"amount" validate:"required"`
}

type TransferActionRequest struct {
	ActorUserID string `json:"actor_user_id" validate:"required,uuid4"`
}

type UpdateUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type SetFrozenRequest struct {
	Frozen *bool `json:"frozen" validate:"required"`
}

type SetPurchaseLimitRequest struct {
	// Limit is a decimal string; null clears the limit.
	Limit *string `json:"limit"`
}

type SetBarcodeDisabledRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}
