package transfers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egegvner/minibank/pkg/auth"
	"github.com/egegvner/minibank/pkg/handlers"
	"github.com/egegvner/minibank/pkg/ledger"
	"github.com/egegvner/minibank/pkg/middleware"
	"github.com/egegvner/minibank/pkg/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	store   *memory.Store
	clock   *testClock
	gateway *auth.Gateway
	router  chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine := ledger.NewEngine(store, ledger.Config{
		Clock:  clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	gateway := auth.NewGateway(engine, store, auth.Config{Secret: "test-secret"})

	handler := NewHandler(engine)
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticator(gateway))
		r.Post("/transfers", handler.Initiate)
		r.Post("/transfers/{id}/accept", handler.Accept)
		r.Post("/transfers/{id}/reject", handler.Reject)
	})
	return &testServer{store: store, clock: clock, gateway: gateway, router: router}
}

// user registers an account and returns its id and a session token.
func (s *testServer) user(t *testing.T, username string) (string, string) {
	t.Helper()
	acct, err := s.gateway.Register(context.Background(), username, "hunter2hunter2", "", "")
	require.NoError(t, err)
	_, token, err := s.gateway.Authenticate(context.Background(), username, "hunter2hunter2")
	require.NoError(t, err)
	return acct.ID, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	acct, err := s.store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return acct.Balance
}

func initiateBody(recipient, amount string) handlers.TransferRequest {
	return handlers.TransferRequest{
		RecipientUsername: recipient,
		Amount:            decimal.RequireFromString(amount),
	}
}

func TestTransferFlow(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.user(t, "alice")
	bobID, bobToken := s.user(t, "bob")

	rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("bob", "30"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx handlers.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, "TRANSFER_OUT", tx.Kind)
	assert.Equal(t, "PENDING", tx.Status)

	// Escrowed on initiation.
	assert.Equal(t, "70", s.balance(t, aliceID).String())
	assert.Equal(t, "100", s.balance(t, bobID).String())

	t.Run("SenderCannotResolve", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers/"+tx.ID+"/accept", aliceToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("RecipientAccepts", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers/"+tx.ID+"/accept", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resolved handlers.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
		assert.Equal(t, "ACCEPTED", resolved.Status)

		assert.Equal(t, "70", s.balance(t, aliceID).String())
		assert.Equal(t, "130", s.balance(t, bobID).String())
	})

	t.Run("DoubleResolution", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers/"+tx.ID+"/reject", bobToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRejectRefunds(t *testing.T) {
	s := newTestServer(t)
	aliceID, aliceToken := s.user(t, "alice")
	_, bobToken := s.user(t, "bob")

	rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("bob", "30"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var tx handlers.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))

	rec = s.do(t, http.MethodPost, "/transfers/"+tx.ID+"/reject", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "100", s.balance(t, aliceID).String())
}

func TestInitiateErrors(t *testing.T) {
	s := newTestServer(t)
	_, aliceToken := s.user(t, "alice")
	s.user(t, "bob")

	t.Run("UnknownRecipient", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("nobody", "10"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("SelfTransfer", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("alice", "10"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("DuplicatePending", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("bob", "10"))
		require.Equal(t, http.StatusCreated, rec.Code)

		s.clock.Advance(61 * time.Second)
		rec = s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("bob", "10"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("OverdrawnAmount", func(t *testing.T) {
		s.user(t, "carol")
		s.clock.Advance(61 * time.Second)
		rec := s.do(t, http.MethodPost, "/transfers", aliceToken, initiateBody("carol", "5000"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
