// Package dynamodb implements the storage contract on AWS DynamoDB.
//
// Every balance-affecting operation is a single TransactWriteItems call whose
// items carry ConditionExpressions: the initiating account's optimistic
// version counter, `balance >= :amount` on debits, and the PENDING status
// check on transfer resolution. A failed condition cancels the whole unit, so
// partial state is never visible.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/shopspring/decimal"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                DynamoDBAPI
	AccountsTableName     string
	TransactionsTableName string
}

// New creates a new Store.
func New(client DynamoDBAPI, accountsTable, transactionsTable string) *Store {
	return &Store{
		Client:                client,
		AccountsTableName:     accountsTable,
		TransactionsTableName: transactionsTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// GSI names. The accounts table is keyed by id with a GSI on username; the
// transactions table is keyed by id with GSIs on account_id and
// counterparty_username.
const (
	usernameIndex     = "username-index"
	accountIndex      = "account_id-index"
	counterpartyIndex = "counterparty_username-index"
)

// debitFailure maps a cancelled commit on a debiting account item. The
// condition is `balance >= :amount AND version = :version`; the caller
// validated the snapshot balance, so a sufficient snapshot means the row went
// stale rather than short.
func debitFailure(snapshot *models.Account, amount decimal.Decimal) error {
	if snapshot.Balance.LessThan(amount) {
		return storage.ErrInsufficientFunds
	}
	return storage.ErrContention
}

// canceledReason returns the index of the first ConditionalCheckFailed
// cancellation reason, or -1 if the error is not a cancelled transaction.
func canceledReason(err error) int {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return -1
	}
	for i, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return i
		}
	}
	return -1
}

func commitErr(op string, err error) error {
	return fmt.Errorf("failed to commit %s: %w", op, err)
}
