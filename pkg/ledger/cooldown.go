package ledger

import (
	"time"

	"github.com/egegvner/minibank/pkg/models"
)

// CooldownGuard rejects a mutating operation if the account already mutated
// within the window. The check itself is a pure read of the account snapshot;
// it stays race-free because the last-mutation timestamp is written in the
// same version-conditioned commit as the operation it gates, so of two racers
// that both pass the check only one can commit.
//
// Only self-initiated operations (deposit, withdrawal, transfer initiation)
// consume the cooldown. Resolving a transfer as the recipient does not.
type CooldownGuard struct {
	Window time.Duration
}

// Check returns nil if the account may mutate at time now, or a
// *CooldownActiveError carrying the remaining wait.
func (g CooldownGuard) Check(acct *models.Account, now time.Time) error {
	if g.Window <= 0 || acct.LastMutation == nil {
		return nil
	}
	elapsed := now.Sub(*acct.LastMutation)
	if elapsed < g.Window {
		return &CooldownActiveError{Remaining: g.Window - elapsed}
	}
	return nil
}
