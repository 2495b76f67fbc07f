package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage/memory"
)

var testNow = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, store *memory.Store, id, username, balance string) *models.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), &models.Account{
		ID:       id,
		Username: username,
		Balance:  decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return acct
}

func apply(t *testing.T, store *memory.Store, acct *models.Account, kind models.TransactionKind, amount string, at time.Time) *models.Account {
	t.Helper()
	a := decimal.RequireFromString(amount)
	rec := &models.TransactionRecord{
		AccountID: acct.ID,
		Kind:      kind,
		Amount:    a,
		Status:    models.StatusComplete,
		CreatedAt: at,
		UpdatedAt: at,
	}
	var err error
	switch kind {
	case models.KindDeposit:
		rec.ResultingBalance = acct.Balance.Add(a)
		_, err = store.ApplyDeposit(context.Background(), acct, rec)
	case models.KindWithdrawal:
		rec.ResultingBalance = acct.Balance.Sub(a)
		_, err = store.ApplyWithdrawal(context.Background(), acct, rec)
	}
	require.NoError(t, err)

	fresh, err := store.GetAccount(context.Background(), acct.ID)
	require.NoError(t, err)
	return fresh
}

func transfer(t *testing.T, store *memory.Store, sender *models.Account, recipientUsername, amount string, at time.Time) *models.TransactionRecord {
	t.Helper()
	a := decimal.RequireFromString(amount)
	rec := &models.TransactionRecord{
		AccountID:            sender.ID,
		Kind:                 models.KindTransferOut,
		Amount:               a,
		ResultingBalance:     sender.Balance.Sub(a),
		CounterpartyUsername: recipientUsername,
		Status:               models.StatusPending,
		CreatedAt:            at,
		UpdatedAt:            at,
	}
	stored, err := store.InitiateTransfer(context.Background(), sender, rec)
	require.NoError(t, err)
	return stored
}

func TestLifetime(t *testing.T) {
	store := memory.New()
	acct := seedAccount(t, store, "a1", "alice", "100")
	acct = apply(t, store, acct, models.KindDeposit, "50", testNow)
	apply(t, store, acct, models.KindWithdrawal, "20", testNow)

	svc := NewService(store, store, func() time.Time { return testNow })
	metrics, err := svc.Lifetime(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice", metrics.Username)
	assert.True(t, metrics.Balance.Equal(decimal.RequireFromString("130")))
	assert.Equal(t, int64(1), metrics.Deposits)
	assert.Equal(t, int64(1), metrics.Withdrawals)
}

func TestRecent(t *testing.T) {
	store := memory.New()
	alice := seedAccount(t, store, "a1", "alice", "1000")
	bob := seedAccount(t, store, "b1", "bob", "1000")

	// Inside the 24h window.
	alice = apply(t, store, alice, models.KindDeposit, "50", testNow.Add(-time.Hour))
	alice = apply(t, store, alice, models.KindWithdrawal, "20", testNow.Add(-2*time.Hour))
	// Outside the window.
	alice = apply(t, store, alice, models.KindDeposit, "500", testNow.Add(-25*time.Hour))

	// A pending transfer counts as outgoing volume, a rejected one does not.
	pending := transfer(t, store, alice, "bob", "30", testNow.Add(-time.Hour))
	alice, err := store.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	rejected := transfer(t, store, alice, "carol", "40", testNow.Add(-time.Hour))
	rejected.Status = models.StatusRejected
	rejected.UpdatedAt = testNow.Add(-30 * time.Minute)
	alice, err = store.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	require.NoError(t, store.RejectTransfer(context.Background(), rejected, alice, bob))

	svc := NewService(store, store, func() time.Time { return testNow })

	t.Run("SenderSide", func(t *testing.T) {
		metrics, err := svc.Recent(context.Background(), "a1", 0)
		require.NoError(t, err)
		assert.True(t, metrics.Deposited.Equal(decimal.RequireFromString("50")), "deposited %s", metrics.Deposited)
		assert.True(t, metrics.Withdrawn.Equal(decimal.RequireFromString("20")))
		assert.True(t, metrics.TransferredOut.Equal(decimal.RequireFromString("30")))
		assert.Equal(t, 4, metrics.Operations)
	})

	t.Run("RecipientSideCountsAcceptanceTime", func(t *testing.T) {
		// Nothing accepted yet.
		metrics, err := svc.Recent(context.Background(), "b1", 0)
		require.NoError(t, err)
		assert.True(t, metrics.TransferredIn.IsZero())

		pending.Status = models.StatusAccepted
		pending.UpdatedAt = testNow.Add(-10 * time.Minute)
		sender, err := store.GetAccount(context.Background(), "a1")
		require.NoError(t, err)
		recipient, err := store.GetAccount(context.Background(), "b1")
		require.NoError(t, err)
		require.NoError(t, store.AcceptTransfer(context.Background(), pending, sender, recipient))

		metrics, err = svc.Recent(context.Background(), "b1", 0)
		require.NoError(t, err)
		assert.True(t, metrics.TransferredIn.Equal(decimal.RequireFromString("30")))
	})

	t.Run("NarrowWindow", func(t *testing.T) {
		metrics, err := svc.Recent(context.Background(), "a1", 90*time.Minute)
		require.NoError(t, err)
		// Only the 1h-old deposit and the two transfers fall inside.
		assert.True(t, metrics.Deposited.Equal(decimal.RequireFromString("50")))
		assert.True(t, metrics.Withdrawn.IsZero())
	})
}

func TestLeaderboard(t *testing.T) {
	store := memory.New()
	seedAccount(t, store, "c1", "carol", "300")
	seedAccount(t, store, "b1", "bob", "100")
	seedAccount(t, store, "a1", "alice", "100")

	svc := NewService(store, store, nil)
	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "carol", entries[0].Username)
	// Equal balances tie-break by account id ascending.
	assert.Equal(t, "a1", entries[1].AccountID)
	assert.Equal(t, "b1", entries[2].AccountID)
	assert.Equal(t, 3, entries[2].Rank)
}
