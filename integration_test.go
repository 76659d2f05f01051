package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"campusbank/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPaymentFlow(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	payer := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "500.00")
	shop := ts.IssueAccount(t, "Campus Cafe", "cafe", "business", "")

	assert.Equal(t, "500.00", ts.GetAccountBalance(t, payer.Account.ID))
	assert.Equal(t, "0.00", ts.GetAccountBalance(t, shop.Account.ID))

	status, env := ts.CardPayment(t, payer.Account, shop.Account.ID, "100.00")
	require.Equal(t, http.StatusOK, status, env.Message)

	assert.Equal(t, "400.00", ts.GetAccountBalance(t, payer.Account.ID))
	assert.Equal(t, "100.00", ts.GetAccountBalance(t, shop.Account.ID))
}

func TestInsufficientBalancePayment(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	payer := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "100.00")
	shop := ts.IssueAccount(t, "Campus Cafe", "cafe", "business", "")

	status, _ := ts.CardPayment(t, payer.Account, shop.Account.ID, "200.00")
	assert.Equal(t, http.StatusConflict, status, "payment beyond the balance should fail")

	assert.Equal(t, "100.00", ts.GetAccountBalance(t, payer.Account.ID))
	assert.Equal(t, "0.00", ts.GetAccountBalance(t, shop.Account.ID))
}

func TestAdminFundManagement(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	admin := ts.IssueAdmin(t, "Root Admin", "root")
	alice := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "")

	status, env := ts.Do(t, "POST", "/accounts/"+alice.Account.ID.String()+"/funds", map[string]string{
		"admin_user_id": admin.User.ID.String(),
		"operation":     "deposit",
		"amount":        "320.00",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "320.00", ts.GetAccountBalance(t, alice.Account.ID))

	// Withdrawing more than the balance is refused and changes nothing.
	status, _ = ts.Do(t, "POST", "/accounts/"+alice.Account.ID.String()+"/funds", map[string]string{
		"admin_user_id": admin.User.ID.String(),
		"operation":     "withdraw",
		"amount":        "500.00",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "320.00", ts.GetAccountBalance(t, alice.Account.ID))

	status, _ = ts.Do(t, "POST", "/accounts/"+alice.Account.ID.String()+"/funds", map[string]string{
		"admin_user_id": admin.User.ID.String(),
		"operation":     "withdraw",
		"amount":        "120.00",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", ts.GetAccountBalance(t, alice.Account.ID))
}

func TestTransferApprovalFlow(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	alice := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "500.00")
	bob := ts.IssueAccount(t, "Bob Brown", "bob", "user", "500.00")

	transfer := ts.InitiateTransfer(t, alice.User.ID, "bob", "100.00")

	// Still pending, so nothing has moved yet.
	assert.Equal(t, "500.00", ts.GetAccountBalance(t, alice.Account.ID))
	assert.Equal(t, "500.00", ts.GetAccountBalance(t, bob.Account.ID))

	status := ts.Approve(t, transfer.ID, bob.User.ID)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "400.00", ts.GetAccountBalance(t, alice.Account.ID))
	assert.Equal(t, "600.00", ts.GetAccountBalance(t, bob.Account.ID))

	status = ts.Approve(t, transfer.ID, bob.User.ID)
	assert.Equal(t, http.StatusConflict, status, "second approval must not settle again")
	assert.Equal(t, "400.00", ts.GetAccountBalance(t, alice.Account.ID))
	assert.Equal(t, "600.00", ts.GetAccountBalance(t, bob.Account.ID))
}

func TestConcurrentApprovalsSettleOnce(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	alice := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "500.00")
	bob := ts.IssueAccount(t, "Bob Brown", "bob", "user", "0")

	transfer := ts.InitiateTransfer(t, alice.User.ID, "bob", "100.00")

	numApprovals := 20
	var wg sync.WaitGroup
	wg.Add(numApprovals)

	statusChan := make(chan int, numApprovals)

	for i := 0; i < numApprovals; i++ {
		go func() {
			defer wg.Done()
			statusChan <- ts.Approve(t, transfer.ID, bob.User.ID)
		}()
	}

	wg.Wait()
	close(statusChan)

	settled := 0
	conflicts := 0
	for status := range statusChan {
		switch status {
		case http.StatusOK:
			settled++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d from concurrent approval", status)
		}
	}

	assert.Equal(t, 1, settled, "exactly one approval should settle")
	assert.Equal(t, numApprovals-1, conflicts)

	assert.Equal(t, "400.00", ts.GetAccountBalance(t, alice.Account.ID))
	assert.Equal(t, "100.00", ts.GetAccountBalance(t, bob.Account.ID))
}

func TestConcurrentPaymentsConserveMoney(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	payer := ts.IssueAccount(t, "Alice Anderson", "alice", "user", "1000.00")
	shop := ts.IssueAccount(t, "Campus Cafe", "cafe", "business", "")

	numPayments := 300
	var wg sync.WaitGroup
	wg.Add(numPayments)

	errorChan := make(chan error, numPayments)

	for i := 0; i < numPayments; i++ {
		go func(paymentNum int) {
			defer wg.Done()

			status, env := ts.CardPayment(t, payer.Account, shop.Account.ID, "1.00")
			if status != http.StatusOK {
				errorChan <- fmt.Errorf("payment %d failed with status %d: %s", paymentNum, status, env.Message)
			}
		}(i)
	}

	wg.Wait()
	close(errorChan)

	for err := range errorChan {
		t.Errorf("Payment error: %v", err)
	}

	assert.Equal(t, "700.00", ts.GetAccountBalance(t, payer.Account.ID))
	assert.Equal(t, "300.00", ts.GetAccountBalance(t, shop.Account.ID))
}

func TestMoneyRequestLifecycle(t *testing.T) {
	ts := testutil.SetupTestServer(t)
	defer ts.Cleanup()

	carol := ts.IssueAccount(t, "Carol Clark", "carol", "user", "")
	dave := ts.IssueAccount(t, "Dave Dunn", "dave", "user", "80.00")

	status, env := ts.Do(t, "POST", "/transfers/requests", map[string]string{
		"requester_user_id": carol.User.ID.String(),
		"payer_username":    "dave",
		"amount":            "30.00",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var request struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &request))

	// The payer sees the pending request and approves it.
	status, env = ts.Do(t, "GET", "/transfers?user_id="+dave.User.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.Do(t, "POST", "/transfers/"+request.ID+"/approve", map[string]string{
		"actor_user_id": dave.User.ID.String(),
	})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "50.00", ts.GetAccountBalance(t, dave.Account.ID))
	assert.Equal(t, "30.00", ts.GetAccountBalance(t, carol.Account.ID))
}
