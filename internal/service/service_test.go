package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"campusbank/internal/cardgen"
	"campusbank/internal/repository/memory"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// stubGenerator hands out deterministic card details and can be flipped into
// failure mode to exercise the upstream-failure paths.
type stubGenerator struct {
	n    int
	fail bool
}

func (g *stubGenerator) Generate(ctx context.Context, holderName string) (*cardgen.Details, error) {
	if g.fail {
		return nil, errors.New("generator offline")
	}
	g.n++
	return &cardgen.Details{
		CardNumber: fmt.Sprintf("4%015d", g.n),
		CVV:        "123",
		ExpiryDate: "09/27",
		Barcode:    fmt.Sprintf("%08d", g.n),
	}, nil
}

type testEnv struct {
	store      *memory.Store
	gen        *stubGenerator
	accounts   AccountService
	settlement SettlementService
	transfers  TransferService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	gen := &stubGenerator{}
	return &testEnv{
		store:      store,
		gen:        gen,
		accounts:   NewAccountService(store.Users(), store.Accounts(), store.Ledger(), gen),
		settlement: NewSettlementService(store.Users(), store.Accounts(), store.Ledger()),
		transfers:  NewTransferService(store.Users(), store.Accounts(), store.Transfers()),
	}
}

func (e *testEnv) issue(t *testing.T, name, username, role, opening string) *models.IssuedAccountResponse {
	t.Helper()

	issued, err := e.accounts.IssueAccount(context.Background(), &models.IssueAccountRequest{
		Name:           name,
		Username:       username,
		Password:       "correct-horse",
		Email:          username + "@campus.test",
		Role:           role,
		OpeningBalance: opening,
	})
	require.NoError(t, err)
	return issued
}

func (e *testEnv) issueAdmin(t *testing.T, name, username string) *models.IssuedAccountResponse {
	t.Helper()

	issued, err := e.accounts.IssueAdmin(context.Background(), &models.IssueAdminRequest{
		Name:     name,
		Username: username,
		Password: "correct-horse",
		Email:    username + "@campus.test",
	})
	require.NoError(t, err)
	return issued
}

func (e *testEnv) balance(t *testing.T, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	account, err := e.accounts.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}
