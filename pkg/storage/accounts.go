package storage

import (
	"context"

	"github.com/egegvner/minibank/pkg/models"
)

// AccountReader defines the read side of account storage.
type AccountReader interface {
	// GetAccount retrieves an account by its id.
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// GetAccountByUsername retrieves an account by its unique username.
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)

	// ListAccounts retrieves all accounts.
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// AccountAdmin defines the privileged account lifecycle operations. These are
// called by registration and administrative glue, never by the ledger engine's
// mutation paths.
type AccountAdmin interface {
	// CreateAccount stores a new account. The account's id must be unused and
	// its username unique; ErrAccountExists otherwise.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)

	// SetSuspended flips the suspension flag. Suspension never blocks the
	// resolution of transfers initiated before it.
	SetSuspended(ctx context.Context, id string, suspended bool) error

	// DeleteAccount removes an account and all transaction records it
	// initiated. Transfer records naming the account as counterparty are left
	// in place.
	DeleteAccount(ctx context.Context, id string) error
}
