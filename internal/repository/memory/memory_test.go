package memory

import (
	"context"
	"testing"

	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store *Store, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Role:     models.RoleUser,
		Name:     username,
		Email:    username + "@campus.test",
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func seedAccount(t *testing.T, store *Store, userID uuid.UUID, balance string) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:         uuid.New(),
		UserID:     userID,
		HolderName: "Holder " + userID.String()[:8],
		CardNumber: "4" + uuid.New().String()[:15],
		CVV:        "123",
		ExpiryDate: "09/27",
		Barcode:    uuid.New().String()[:8],
		Balance:    decimal.RequireFromString(balance),
	}
	require.NoError(t, store.Accounts().Create(context.Background(), account))
	return account
}

func seedTransfer(t *testing.T, store *Store, sender, recipient *models.Account, amount string) *models.PendingTransfer {
	t.Helper()

	transfer := &models.PendingTransfer{
		ID:                 uuid.New(),
		Kind:               models.KindTransfer,
		SenderUserID:       sender.UserID,
		SenderAccountID:    sender.ID,
		SenderName:         sender.HolderName,
		RecipientUserID:    recipient.UserID,
		RecipientAccountID: recipient.ID,
		RecipientUsername:  "recipient",
		Amount:             decimal.RequireFromString(amount),
		Status:             models.TransferPending,
	}
	require.NoError(t, store.Transfers().Create(context.Background(), transfer))
	return transfer
}

func TestUserUniqueness(t *testing.T) {
	store := NewStore()
	seedUser(t, store, "alice")

	err := store.Users().Create(context.Background(), &models.User{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "someone-else@campus.test",
	})
	require.ErrorIs(t, err, models.ErrDuplicate)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	store := NewStore()
	user := seedUser(t, store, "alice")

	got, err := store.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	got.Username = "mangled"

	again, err := store.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}

func TestAccountLookupsByCredential(t *testing.T) {
	store := NewStore()
	user := seedUser(t, store, "alice")
	account := seedAccount(t, store, user.ID, "10.00")

	byCard, err := store.Accounts().GetByCardNumber(context.Background(), account.CardNumber)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byCard.ID)

	byBarcode, err := store.Accounts().GetByBarcode(context.Background(), account.Barcode)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byBarcode.ID)

	_, err = store.Accounts().GetByCardNumber(context.Background(), "4000000000000000")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestWithdrawRejectsOverdraft(t *testing.T) {
	store := NewStore()
	user := seedUser(t, store, "alice")
	account := seedAccount(t, store, user.ID, "10.00")

	err := store.Ledger().Withdraw(context.Background(), account.ID, uuid.Nil,
		decimal.RequireFromString("10.01"), uuid.New(), "too much")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	got, err := store.Accounts().GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestPurchaseWritesBothLegs(t *testing.T) {
	store := NewStore()
	payer := seedAccount(t, store, seedUser(t, store, "alice").ID, "50.00")
	shop := seedAccount(t, store, seedUser(t, store, "shop").ID, "0")

	txnID := uuid.New()
	err := store.Ledger().Purchase(context.Background(), payer.ID, shop.ID,
		decimal.RequireFromString("12.50"), txnID, "Purchase at shop")
	require.NoError(t, err)

	all, err := store.Ledger().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, p := range all {
		assert.Equal(t, txnID, p.TransactionID)
		assert.Equal(t, models.PostingPurchase, p.Type)
	}
}

func TestLedgerListsNewestFirst(t *testing.T) {
	store := NewStore()
	account := seedAccount(t, store, seedUser(t, store, "alice").ID, "0")

	for _, desc := range []string{"first", "second", "third"} {
		require.NoError(t, store.Ledger().Deposit(context.Background(), account.ID, uuid.Nil,
			decimal.RequireFromString("1.00"), uuid.New(), desc))
	}

	postings, err := store.Ledger().ListByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.Len(t, postings, 3)
	assert.Equal(t, "third", postings[0].Description)
	assert.Equal(t, "first", postings[2].Description)
}

func TestResolveIsTerminal(t *testing.T) {
	store := NewStore()
	sender := seedAccount(t, store, seedUser(t, store, "alice").ID, "50.00")
	recipient := seedAccount(t, store, seedUser(t, store, "bob").ID, "0")
	transfer := seedTransfer(t, store, sender, recipient, "20.00")

	rejected, err := store.Transfers().Resolve(context.Background(), transfer.ID, models.TransferRejected, "Rejected")
	require.NoError(t, err)
	assert.Equal(t, models.TransferRejected, rejected.Status)
	require.NotNil(t, rejected.ResolvedAt)

	_, err = store.Transfers().Resolve(context.Background(), transfer.ID, models.TransferCancelled, "Cancelled")
	require.ErrorIs(t, err, models.ErrAlreadyResolved)

	_, err = store.Transfers().Settle(context.Background(), transfer.ID, uuid.New(), "Approved")
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestSettleMovesBalancesOnce(t *testing.T) {
	store := NewStore()
	sender := seedAccount(t, store, seedUser(t, store, "alice").ID, "50.00")
	recipient := seedAccount(t, store, seedUser(t, store, "bob").ID, "0")
	transfer := seedTransfer(t, store, sender, recipient, "20.00")

	settled, err := store.Transfers().Settle(context.Background(), transfer.ID, uuid.New(), "Approved")
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, settled.Status)

	_, err = store.Transfers().Settle(context.Background(), transfer.ID, uuid.New(), "Approved")
	require.ErrorIs(t, err, models.ErrAlreadyResolved)

	got, err := store.Accounts().GetByID(context.Background(), sender.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("30.00")))
}

func TestSettleInsufficientFundsMarksFailed(t *testing.T) {
	store := NewStore()
	sender := seedAccount(t, store, seedUser(t, store, "alice").ID, "10.00")
	recipient := seedAccount(t, store, seedUser(t, store, "bob").ID, "0")
	transfer := seedTransfer(t, store, sender, recipient, "20.00")

	_, err := store.Transfers().Settle(context.Background(), transfer.ID, uuid.New(), "Approved")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	stored, err := store.Transfers().GetByID(context.Background(), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferFailed, stored.Status)
	require.NotNil(t, stored.ResolvedAt)

	// The failed settlement wrote no postings and touched no balances.
	all, err := store.Ledger().ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListPendingByUserFiltersResolved(t *testing.T) {
	store := NewStore()
	sender := seedAccount(t, store, seedUser(t, store, "alice").ID, "50.00")
	recipient := seedAccount(t, store, seedUser(t, store, "bob").ID, "0")

	open := seedTransfer(t, store, sender, recipient, "5.00")
	closed := seedTransfer(t, store, sender, recipient, "6.00")
	_, err := store.Transfers().Resolve(context.Background(), closed.ID, models.TransferRejected, "Rejected")
	require.NoError(t, err)

	pending, err := store.Transfers().ListPendingByUser(context.Background(), sender.UserID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.ID, pending[0].ID)
}
