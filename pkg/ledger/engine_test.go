package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *testClock) {
	t.Helper()
	store := memory.New()
	clock := newTestClock()
	engine := NewEngine(store, Config{
		Clock:  clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return engine, store, clock
}

func seedAccount(t *testing.T, store *memory.Store, username, balance string) *models.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), &models.Account{
		ID:       uuid.NewString(),
		Username: username,
		Balance:  decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return acct
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)

		acct, err := engine.Register(context.Background(), "alice", "hash", "Alice", "alice@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, acct.ID)
		assert.True(t, acct.Balance.Equal(decimal.NewFromInt(100)))
		assert.Zero(t, acct.Deposits)
		assert.Zero(t, acct.Withdrawals)
		assert.Zero(t, acct.TransfersIn)
		assert.Zero(t, acct.TransfersOut)
		assert.Nil(t, acct.LastMutation)

		stored, err := store.GetAccountByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, stored.ID)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.Register(context.Background(), "alice", "hash", "", "")
		require.NoError(t, err)
		_, err = engine.Register(context.Background(), "alice", "hash", "", "")
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.Register(context.Background(), "", "hash", "", "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestDeposit(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		rec, err := engine.Deposit(context.Background(), acct.ID, dec(t, "74"))
		require.NoError(t, err)
		assert.Equal(t, models.KindDeposit, rec.Kind)
		assert.Equal(t, models.StatusComplete, rec.Status)
		assert.True(t, rec.ResultingBalance.Equal(dec(t, "174")))

		after, err := store.GetAccount(context.Background(), acct.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(dec(t, "174")))
		assert.Equal(t, int64(1), after.Deposits)
		require.NotNil(t, after.LastMutation)
	})

	t.Run("ExactlyAtLimit", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		rec, err := engine.Deposit(context.Background(), acct.ID, dec(t, "75"))
		require.NoError(t, err)
		assert.True(t, rec.ResultingBalance.Equal(dec(t, "175")))
	})

	t.Run("AboveLimit", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		_, err := engine.Deposit(context.Background(), acct.ID, dec(t, "76"))
		assert.ErrorIs(t, err, ErrDepositLimitExceeded)

		after, err := store.GetAccount(context.Background(), acct.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(dec(t, "100")))
		assert.Nil(t, after.LastMutation)
	})

	t.Run("LimitGrowsWithBalance", func(t *testing.T) {
		engine, store, clock := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		_, err := engine.Deposit(context.Background(), acct.ID, dec(t, "75"))
		require.NoError(t, err)

		clock.Advance(61 * time.Second)
		rec, err := engine.Deposit(context.Background(), acct.ID, dec(t, "131.25"))
		require.NoError(t, err)
		assert.True(t, rec.ResultingBalance.Equal(dec(t, "306.25")))
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		for _, amount := range []string{"0", "-5"} {
			_, err := engine.Deposit(context.Background(), acct.ID, dec(t, amount))
			assert.ErrorIs(t, err, ErrValidation)
		}
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		engine, _, _ := newTestEngine(t)

		_, err := engine.Deposit(context.Background(), "missing", dec(t, "10"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SuspendedAccount", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")
		require.NoError(t, store.SetSuspended(context.Background(), acct.ID, true))

		_, err := engine.Deposit(context.Background(), acct.ID, dec(t, "10"))
		assert.ErrorIs(t, err, ErrSuspendedAccount)
	})
}

func TestWithdraw(t *testing.T) {
	t.Run("DownToZero", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "50")

		rec, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "50"))
		require.NoError(t, err)
		assert.True(t, rec.ResultingBalance.Equal(decimal.Zero))

		after, err := store.GetAccount(context.Background(), acct.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(decimal.Zero))
		assert.Equal(t, int64(1), after.Withdrawals)
	})

	t.Run("Overdraft", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "50")

		_, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "50.01"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		after, err := store.GetAccount(context.Background(), acct.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(dec(t, "50")))
	})

	t.Run("AboveOperationCap", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "2000000")

		_, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "1000000.01"))
		assert.ErrorIs(t, err, ErrValidation)

		rec, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "1000000"))
		require.NoError(t, err)
		assert.True(t, rec.ResultingBalance.Equal(dec(t, "1000000")))
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "50")

		_, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "0"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCooldown(t *testing.T) {
	t.Run("BlocksBackToBackOperations", func(t *testing.T) {
		engine, store, clock := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")

		_, err := engine.Deposit(context.Background(), acct.ID, dec(t, "10"))
		require.NoError(t, err)

		_, err = engine.Withdraw(context.Background(), acct.ID, dec(t, "10"))
		var cooldown *CooldownActiveError
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 60, cooldown.SecondsRemaining())

		clock.Advance(59 * time.Second)
		_, err = engine.Withdraw(context.Background(), acct.ID, dec(t, "10"))
		require.ErrorAs(t, err, &cooldown)
		assert.Equal(t, 1, cooldown.SecondsRemaining())

		clock.Advance(2 * time.Second)
		_, err = engine.Withdraw(context.Background(), acct.ID, dec(t, "10"))
		assert.NoError(t, err)
	})

	t.Run("AppliesAcrossOperationKinds", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		acct := seedAccount(t, store, "alice", "100")
		seedAccount(t, store, "bob", "100")

		_, err := engine.Withdraw(context.Background(), acct.ID, dec(t, "10"))
		require.NoError(t, err)

		var cooldown *CooldownActiveError
		_, err = engine.InitiateTransfer(context.Background(), acct.ID, "bob", dec(t, "5"))
		assert.ErrorAs(t, err, &cooldown)
	})

	t.Run("ResolutionDoesNotConsumeRecipientCooldown", func(t *testing.T) {
		engine, store, _ := newTestEngine(t)
		alice := seedAccount(t, store, "alice", "100")
		bob := seedAccount(t, store, "bob", "100")

		rec, err := engine.InitiateTransfer(context.Background(), alice.ID, "bob", dec(t, "30"))
		require.NoError(t, err)

		_, err = engine.ResolveTransfer(context.Background(), rec.ID, DecisionAccept, bob.ID)
		require.NoError(t, err)

		// The recipient never self-initiated, so its cooldown is untouched.
		_, err = engine.Deposit(context.Background(), bob.ID, dec(t, "10"))
		assert.NoError(t, err)
	})
}

func TestGetHistory(t *testing.T) {
	engine, store, clock := newTestEngine(t)
	alice := seedAccount(t, store, "alice", "100")
	bob := seedAccount(t, store, "bob", "100")

	_, err := engine.Deposit(context.Background(), alice.ID, dec(t, "20"))
	require.NoError(t, err)
	clock.Advance(61 * time.Second)
	_, err = engine.Withdraw(context.Background(), alice.ID, dec(t, "40"))
	require.NoError(t, err)
	clock.Advance(61 * time.Second)
	transfer, err := engine.InitiateTransfer(context.Background(), alice.ID, "bob", dec(t, "30"))
	require.NoError(t, err)

	t.Run("SenderSide", func(t *testing.T) {
		recs, err := engine.GetHistory(context.Background(), alice.ID)
		require.NoError(t, err)
		require.Len(t, recs, 3)

		// Newest first.
		assert.Equal(t, models.KindTransferOut, recs[0].Kind)
		assert.Equal(t, models.StatusPending, recs[0].Status)
		assert.Equal(t, "bob", recs[0].CounterpartyUsername)
		assert.Equal(t, models.KindWithdrawal, recs[1].Kind)
		assert.Equal(t, models.KindDeposit, recs[2].Kind)
	})

	t.Run("RecipientSide", func(t *testing.T) {
		recs, err := engine.GetHistory(context.Background(), bob.ID)
		require.NoError(t, err)
		require.Len(t, recs, 1)

		got := recs[0]
		assert.Equal(t, transfer.ID, got.ID)
		assert.Equal(t, models.KindTransferIn, got.Kind)
		assert.Equal(t, bob.ID, got.AccountID)
		assert.Equal(t, "alice", got.CounterpartyUsername)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.True(t, got.ResultingBalance.IsZero())
	})
}
