package dynamodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/google/uuid"
)

// ApplyDeposit atomically credits the account, bumps its deposit counter and
// last-mutation time, and appends the COMPLETE deposit record.
func (s *Store) ApplyDeposit(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	update := s.accountUpdate(acct,
		"SET balance = balance + :amount, deposits = deposits + :one, version = version + :one, last_mutation = :now",
		"version = :version", rec)

	stored, put, err := s.recordPut(rec)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Update: update}, {Put: put}},
	}
	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if canceledReason(err) >= 0 {
			return nil, storage.ErrContention
		}
		return nil, commitErr("deposit", err)
	}
	return stored, nil
}

// ApplyWithdrawal atomically debits the account, bumps its withdrawal counter
// and last-mutation time, and appends the COMPLETE withdrawal record.
func (s *Store) ApplyWithdrawal(ctx context.Context, acct *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	update := s.accountUpdate(acct,
		"SET balance = balance - :amount, withdrawals = withdrawals + :one, version = version + :one, last_mutation = :now",
		"balance >= :amount AND version = :version", rec)

	stored, put, err := s.recordPut(rec)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Update: update}, {Put: put}},
	}
	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if canceledReason(err) >= 0 {
			return nil, debitFailure(acct, rec.Amount)
		}
		return nil, commitErr("withdrawal", err)
	}
	return stored, nil
}

// InitiateTransfer atomically escrows the amount out of the sender's balance
// and appends the PENDING transfer record. The recipient is not touched.
func (s *Store) InitiateTransfer(ctx context.Context, sender *models.Account, rec *models.TransactionRecord) (*models.TransactionRecord, error) {
	update := s.accountUpdate(sender,
		"SET balance = balance - :amount, version = version + :one, last_mutation = :now",
		"balance >= :amount AND version = :version", rec)

	stored, put, err := s.recordPut(rec)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Update: update}, {Put: put}},
	}
	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if canceledReason(err) >= 0 {
			return nil, debitFailure(sender, rec.Amount)
		}
		return nil, commitErr("transfer initiation", err)
	}
	return stored, nil
}

// accountUpdate builds the account-side item of an atomic unit: the balance
// and counter arithmetic, conditioned on the caller's snapshot version.
func (s *Store) accountUpdate(acct *models.Account, expr, cond string, rec *models.TransactionRecord) *types.Update {
	nowAV, _ := attributevalue.Marshal(rec.CreatedAt)
	return &types.Update{
		TableName:           aws.String(s.AccountsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: acct.ID}},
		UpdateExpression:    aws.String(expr),
		ConditionExpression: aws.String(cond),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount":  numAV(rec.Amount),
			":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(acct.Version, 10)},
			":one":     &types.AttributeValueMemberN{Value: "1"},
			":now":     nowAV,
		},
	}
}

// recordPut assigns the record id and builds its Put item.
func (s *Store) recordPut(rec *models.TransactionRecord) (*models.TransactionRecord, *types.Put, error) {
	stored := *rec
	stored.ID = uuid.NewString()

	recAV, err := attributevalue.MarshalMap(toDBRecord(&stored))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	put := &types.Put{
		TableName:           aws.String(s.TransactionsTableName),
		Item:                recAV,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}
	return &stored, put, nil
}
