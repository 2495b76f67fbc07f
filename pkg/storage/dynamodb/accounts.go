package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// CreateAccount creates a new account record in DynamoDB. Username uniqueness
// is enforced with a marker item in the same table keyed "username#<name>",
// written in the same transaction as the account row.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	acctAV, err := attributevalue.MarshalMap(toDBAccount(account))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.AccountsTableName),
					Item:                acctAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(s.AccountsTableName),
					Item: map[string]types.AttributeValue{
						"id":         &types.AttributeValueMemberS{Value: usernameMarker(account.Username)},
						"account_id": &types.AttributeValueMemberS{Value: account.ID},
					},
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if canceledReason(err) >= 0 {
			return nil, storage.ErrAccountExists
		}
		return nil, commitErr("account creation", err)
	}
	return account, nil
}

func usernameMarker(username string) string {
	return "username#" + username
}

// GetAccount retrieves an account from DynamoDB by its id.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.AccountsTableName),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var acct dbAccount
	if err := attributevalue.UnmarshalMap(result.Item, &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return acct.toDomain(), nil
}

// GetAccountByUsername retrieves an account by username via the username GSI.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	result, err := s.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.AccountsTableName),
		IndexName:              aws.String(usernameIndex),
		KeyConditionExpression: aws.String("username = :username"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query account by username: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, storage.ErrNotFound
	}

	var acct dbAccount
	if err := attributevalue.UnmarshalMap(result.Items[0], &acct); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return acct.toDomain(), nil
}

// SetSuspended flips the suspension flag on an account.
func (s *Store) SetSuspended(ctx context.Context, id string, suspended bool) error {
	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.AccountsTableName),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:    aws.String("SET suspended = :suspended, version = version + :one"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":suspended": &types.AttributeValueMemberBOOL{Value: suspended},
			":one":       &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update suspension flag: %w", err)
	}
	return nil
}

// ListAccounts retrieves all accounts from DynamoDB.
func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.AccountsTableName),
		FilterExpression: aws.String("attribute_exists(username)"), // skip username marker items
	}

	var out []models.Account
	for {
		result, err := s.Client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan accounts table: %w", err)
		}
		var page []dbAccount
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
		}
		for i := range page {
			out = append(out, *page[i].toDomain())
		}
		if result.LastEvaluatedKey == nil {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// DeleteAccount removes an account, its username marker, and every record the
// account initiated.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	acct, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}

	recs, err := s.ListTransactionsByAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list records for deletion: %w", err)
	}
	for _, rec := range recs {
		_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.TransactionsTableName),
			Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: rec.ID}},
		})
		if err != nil {
			return fmt.Errorf("failed to delete record %s: %w", rec.ID, err)
		}
	}

	for _, key := range []string{id, usernameMarker(acct.Username)} {
		_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(s.AccountsTableName),
			Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: key}},
			ConditionExpression: aws.String("attribute_exists(id)"),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("failed to delete account: %w", err)
		}
	}
	return nil
}
