// Package testutil spins up the full HTTP stack against a disposable
// Postgres container for integration tests.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"campusbank/internal/cardgen"
	"campusbank/internal/database"
	"campusbank/internal/handlers"
	"campusbank/internal/repository"
	"campusbank/internal/service"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sql.DB
	Cleanup func()
	client  *http.Client
}

// Envelope mirrors the response wrapper every endpoint uses.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	os.Setenv("LOG_LEVEL", "ERROR")

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "campusbank_test",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	databaseURL := fmt.Sprintf("postgres://postgres:password@%s:%s/campusbank_test?sslmode=disable", host, port.Port())

	time.Sleep(2 * time.Second)

	db, err := database.NewConnection(databaseURL)
	require.NoError(t, err)

	err = database.RunMigrations(db)
	require.NoError(t, err)

	err = db.Ping()
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	transferRepo := repository.NewTransferRepository(db)

	accountService := service.NewAccountService(userRepo, accountRepo, ledgerRepo, cardgen.NewLocalGenerator())
	settlementService := service.NewSettlementService(userRepo, accountRepo, ledgerRepo)
	transferService := service.NewTransferService(userRepo, accountRepo, transferRepo)

	router := handlers.SetupRoutes(
		handlers.NewAccountHandler(accountService),
		handlers.NewSettlementHandler(settlementService),
		handlers.NewTransferHandler(transferService),
	)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		db.Close()
		postgres.Terminate(ctx)
	}

	ts := &TestServer{
		Server:  server,
		DB:      db,
		Cleanup: cleanup,
	}

	ts.client = &http.Client{
		Timeout: 10 * time.Second,
	}

	return ts
}

// Do sends a JSON request and decodes the envelope, returning the HTTP
// status alongside it.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}) (int, Envelope) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (ts *TestServer) IssueAccount(t *testing.T, name, username, role, openingBalance string) *models.IssuedAccountResponse {
	t.Helper()

	status, env := ts.Do(t, "POST", "/accounts", map[string]string{
		"name":            name,
		"username":        username,
		"password":        "correct-horse",
		"email":           username + "@campus.test",
		"role":            role,
		"opening_balance": openingBalance,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var issued models.IssuedAccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	return &issued
}

func (ts *TestServer) IssueAdmin(t *testing.T, name, username string) *models.IssuedAccountResponse {
	t.Helper()

	status, env := ts.Do(t, "POST", "/admins", map[string]string{
		"name":     name,
		"username": username,
		"password": "correct-horse",
		"email":    username + "@campus.test",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var issued models.IssuedAccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	return &issued
}

func (ts *TestServer) GetAccountBalance(t *testing.T, accountID uuid.UUID) string {
	t.Helper()

	status, env := ts.Do(t, "GET", "/accounts/"+accountID.String(), nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	var account models.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))
	return account.Balance.StringFixed(2)
}

// CardPayment pays the business with the payer's card and returns the HTTP
// status so callers can also assert the rejection paths.
func (ts *TestServer) CardPayment(t *testing.T, payer *models.Account, businessAccountID uuid.UUID, amount string) (int, Envelope) {
	t.Helper()

	return ts.Do(t, "POST", "/payments/card", map[string]string{
		"card_number":         payer.CardNumber,
		"cvv":                 payer.CVV,
		"expiry_date":         payer.ExpiryDate,
		"business_account_id": businessAccountID.String(),
		"amount":              amount,
	})
}

func (ts *TestServer) InitiateTransfer(t *testing.T, senderUserID uuid.UUID, recipientUsername, amount string) *models.PendingTransfer {
	t.Helper()

	status, env := ts.Do(t, "POST", "/transfers", map[string]string{
		"sender_user_id":     senderUserID.String(),
		"recipient_username": recipientUsername,
		"amount":             amount,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var transfer models.PendingTransfer
	require.NoError(t, json.Unmarshal(env.Data, &transfer))
	return &transfer
}

// Approve posts an approval and returns the HTTP status; concurrent callers
// racing on one item use it to count how many settlements went through.
func (ts *TestServer) Approve(t *testing.T, transferID, actorUserID uuid.UUID) int {
	t.Helper()

	status, _ := ts.Do(t, "POST", fmt.Sprintf("/transfers/%s/approve", transferID), map[string]string{
		"actor_user_id": actorUserID.String(),
	})
	return status
}
