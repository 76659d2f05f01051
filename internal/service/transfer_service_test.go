package service

import (
	"context"
	"testing"

	"campusbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "150.75")
	bob := env.issue(t, "Bob Brown", "bob", "user", "40.00")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "20.00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, transfer.Status)
	assert.Equal(t, models.KindTransfer, transfer.Kind)

	// Nothing moves until the recipient approves.
	requireAmount(t, "150.75", env.balance(t, alice.Account.ID))

	approved, err := env.transfers.Approve(context.Background(), transfer.ID, bob.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, approved.Status)
	require.NotNil(t, approved.ResolvedAt)
	assert.Contains(t, approved.Note, "Bob Brown")

	requireAmount(t, "130.75", env.balance(t, alice.Account.ID))
	requireAmount(t, "60.00", env.balance(t, bob.Account.ID))

	// Exactly one posting pair, correlated by transaction id.
	alicePostings, err := env.accounts.AccountTransactions(context.Background(), alice.Account.ID)
	require.NoError(t, err)
	bobPostings, err := env.accounts.AccountTransactions(context.Background(), bob.Account.ID)
	require.NoError(t, err)

	aliceLeg := alicePostings[0]
	bobLeg := bobPostings[0]
	assert.Equal(t, models.PostingTransfer, aliceLeg.Type)
	assert.Equal(t, models.PostingTransfer, bobLeg.Type)
	assert.Equal(t, aliceLeg.TransactionID, bobLeg.TransactionID)
	requireAmount(t, "-20.00", aliceLeg.Amount)
	requireAmount(t, "20.00", bobLeg.Amount)

	count := 0
	ledger, err := env.settlement.Ledger(context.Background())
	require.NoError(t, err)
	for _, p := range ledger {
		if p.TransactionID == aliceLeg.TransactionID {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestApproveTwiceReturnsAlreadyResolved(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")
	bob := env.issue(t, "Bob Brown", "bob", "user", "")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "25.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Approve(context.Background(), transfer.ID, bob.User.ID)
	require.NoError(t, err)

	_, err = env.transfers.Approve(context.Background(), transfer.ID, bob.User.ID)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)

	// Balances unchanged from after the first approval.
	requireAmount(t, "75.00", env.balance(t, alice.Account.ID))
	requireAmount(t, "25.00", env.balance(t, bob.Account.ID))
}

func TestApproveWithFundsGoneTransitionsToFailed(t *testing.T) {
	env := newTestEnv(t)
	admin := env.issueAdmin(t, "Root Admin", "root")
	alice := env.issue(t, "Alice Anderson", "alice", "user", "60.00")
	bob := env.issue(t, "Bob Brown", "bob", "user", "")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "50.00",
	})
	require.NoError(t, err)

	// Drain the sender between initiation and approval.
	_, err = env.settlement.ManageFunds(context.Background(), alice.Account.ID, &models.ManageFundsRequest{
		AdminUserID: admin.User.ID.String(),
		Operation:   "withdraw",
		Amount:      "40.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Approve(context.Background(), transfer.ID, bob.User.ID)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	failed, err := env.transfers.Approve(context.Background(), transfer.ID, bob.User.ID)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
	assert.Nil(t, failed)

	stored, err := env.store.Transfers().GetByID(context.Background(), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferFailed, stored.Status)
	assert.Contains(t, stored.Note, "insufficient funds")

	// No balance mutation from the failed settlement.
	requireAmount(t, "20.00", env.balance(t, alice.Account.ID))
	requireAmount(t, "0", env.balance(t, bob.Account.ID))
}

func TestRejectNeverMovesMoney(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")
	bob := env.issue(t, "Bob Brown", "bob", "user", "")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "25.00",
	})
	require.NoError(t, err)

	rejected, err := env.transfers.Reject(context.Background(), transfer.ID, bob.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferRejected, rejected.Status)

	requireAmount(t, "100.00", env.balance(t, alice.Account.ID))
	requireAmount(t, "0", env.balance(t, bob.Account.ID))
}

func TestSelfTransferRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")

	_, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "alice",
		Amount:            "25.00",
	})
	require.ErrorIs(t, err, models.ErrInvalidOperation)
}

func TestInitiateWithInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "10.00")
	env.issue(t, "Bob Brown", "bob", "user", "")

	_, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "25.00",
	})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestApproveByStrangerUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")
	env.issue(t, "Bob Brown", "bob", "user", "")
	mallory := env.issue(t, "Mallory Moore", "mallory", "user", "")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "25.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Approve(context.Background(), transfer.ID, mallory.User.ID)
	require.ErrorIs(t, err, models.ErrUnauthorized)
	requireAmount(t, "100.00", env.balance(t, alice.Account.ID))
}

func TestMoneyRequestFlow(t *testing.T) {
	env := newTestEnv(t)
	carol := env.issue(t, "Carol Clark", "carol", "user", "")
	dave := env.issue(t, "Dave Dunn", "dave", "user", "80.00")

	request, err := env.transfers.InitiateRequest(context.Background(), &models.InitiateRequestRequest{
		RequesterUserID: carol.User.ID.String(),
		PayerUsername:   "dave",
		Amount:          "30.00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindRequest, request.Kind)
	// The payer is stored on the sender side: debited on approval.
	assert.Equal(t, dave.User.ID, request.SenderUserID)
	assert.Equal(t, carol.User.ID, request.RecipientUserID)

	// The payer approves, which pays.
	approved, err := env.transfers.Approve(context.Background(), request.ID, dave.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, approved.Status)

	requireAmount(t, "50.00", env.balance(t, dave.Account.ID))
	requireAmount(t, "30.00", env.balance(t, carol.Account.ID))
}

func TestCancelOnlyByInitiator(t *testing.T) {
	env := newTestEnv(t)
	carol := env.issue(t, "Carol Clark", "carol", "user", "")
	dave := env.issue(t, "Dave Dunn", "dave", "user", "80.00")

	// A request is initiated by the requester, the recipient side.
	request, err := env.transfers.InitiateRequest(context.Background(), &models.InitiateRequestRequest{
		RequesterUserID: carol.User.ID.String(),
		PayerUsername:   "dave",
		Amount:          "30.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Cancel(context.Background(), request.ID, dave.User.ID)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	cancelled, err := env.transfers.Cancel(context.Background(), request.ID, carol.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCancelled, cancelled.Status)
}

func TestCancelTwiceReturnsAlreadyResolved(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")
	env.issue(t, "Bob Brown", "bob", "user", "")

	transfer, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "25.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Cancel(context.Background(), transfer.ID, alice.User.ID)
	require.NoError(t, err)

	_, err = env.transfers.Cancel(context.Background(), transfer.ID, alice.User.ID)
	require.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestListPendingOnlyOpenItems(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issue(t, "Alice Anderson", "alice", "user", "100.00")
	bob := env.issue(t, "Bob Brown", "bob", "user", "")

	first, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "10.00",
	})
	require.NoError(t, err)

	second, err := env.transfers.InitiateTransfer(context.Background(), &models.InitiateTransferRequest{
		SenderUserID:      alice.User.ID.String(),
		RecipientUsername: "bob",
		Amount:            "15.00",
	})
	require.NoError(t, err)

	_, err = env.transfers.Reject(context.Background(), first.ID, bob.User.ID)
	require.NoError(t, err)

	pending, err := env.transfers.ListPending(context.Background(), bob.User.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}
