package storage

import (
	"context"

	"github.com/egegvner/minibank/pkg/models"
)

// TransactionReader defines the interface for reading transaction records.
type TransactionReader interface {
	// GetTransaction retrieves a transaction record by its id.
	GetTransaction(ctx context.Context, id string) (*models.TransactionRecord, error)

	// ListTransactionsByAccount retrieves all records initiated by an account,
	// newest first.
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error)

	// ListTransfersToUsername retrieves all transfer records naming the given
	// username as counterparty, newest first.
	ListTransfersToUsername(ctx context.Context, username string) ([]models.TransactionRecord, error)

	// FindPendingTransfer returns the PENDING transfer from the given sender
	// to the given recipient username, or ErrNotFound. At most one such record
	// can exist per ordered (sender, recipient) pair.
	FindPendingTransfer(ctx context.Context, senderID, recipientUsername string) (*models.TransactionRecord, error)
}
