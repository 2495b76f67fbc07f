package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// GetTransaction retrieves a transaction record from DynamoDB by its id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.TransactionRecord, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var rec dbRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return rec.toDomain(), nil
}

// ListTransactionsByAccount retrieves all records initiated by an account,
// newest first, via the account GSI.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.TransactionRecord, error) {
	return s.queryRecords(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(accountIndex),
		KeyConditionExpression: aws.String("account_id = :account_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":account_id": &types.AttributeValueMemberS{Value: accountID},
		},
	})
}

// ListTransfersToUsername retrieves all transfer records naming the username
// as counterparty, newest first, via the counterparty GSI.
func (s *Store) ListTransfersToUsername(ctx context.Context, username string) ([]models.TransactionRecord, error) {
	return s.queryRecords(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(counterpartyIndex),
		KeyConditionExpression: aws.String("counterparty_username = :username"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
	})
}

// FindPendingTransfer returns the PENDING transfer for the ordered
// (sender, recipient) pair, or ErrNotFound.
func (s *Store) FindPendingTransfer(ctx context.Context, senderID, recipientUsername string) (*models.TransactionRecord, error) {
	recs, err := s.queryRecords(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(accountIndex),
		KeyConditionExpression: aws.String("account_id = :account_id"),
		FilterExpression:       aws.String("#status = :pending AND counterparty_username = :username"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":account_id": &types.AttributeValueMemberS{Value: senderID},
			":pending":    &types.AttributeValueMemberS{Value: string(models.StatusPending)},
			":username":   &types.AttributeValueMemberS{Value: recipientUsername},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &recs[0], nil
}

func (s *Store) queryRecords(ctx context.Context, input *dynamodb.QueryInput) ([]models.TransactionRecord, error) {
	var out []models.TransactionRecord
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query transactions: %w", err)
		}
		var page []dbRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		for i := range page {
			out = append(out, *page[i].toDomain())
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
