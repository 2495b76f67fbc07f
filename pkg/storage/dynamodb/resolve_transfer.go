package dynamodb

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
)

// AcceptTransfer credits the recipient with the escrowed amount, bumps the
// transfer counters on both sides, and transitions the record
// PENDING -> ACCEPTED, all in one conditional transaction.
func (s *Store) AcceptTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error {
	return s.resolveTransfer(ctx, rec, sender, recipient, models.StatusAccepted)
}

// RejectTransfer refunds the escrowed amount to the sender, bumps the transfer
// counters on both sides, and transitions the record PENDING -> REJECTED. With
// a nil sender the refund is dropped: the escrowed value has no account to
// return to.
func (s *Store) RejectTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account) error {
	return s.resolveTransfer(ctx, rec, sender, recipient, models.StatusRejected)
}

func (s *Store) resolveTransfer(ctx context.Context, rec *models.TransactionRecord, sender, recipient *models.Account, to models.TransactionStatus) error {
	recipientExpr := "SET transfers_in = transfers_in + :one, version = version + :one"
	senderExpr := "SET transfers_out = transfers_out + :one, version = version + :one"
	if to == models.StatusAccepted {
		recipientExpr = "SET balance = balance + :amount, transfers_in = transfers_in + :one, version = version + :one"
	} else if sender != nil {
		senderExpr = "SET balance = balance + :amount, transfers_out = transfers_out + :one, version = version + :one"
	}

	recipientItem := types.TransactWriteItem{Update: s.counterpartyUpdate(recipient, recipientExpr, rec)}

	// Account items go in ascending account-id order so that concurrent
	// resolutions contend on the same item first.
	var items []types.TransactWriteItem
	if sender != nil {
		senderItem := types.TransactWriteItem{Update: s.counterpartyUpdate(sender, senderExpr, rec)}
		if sender.ID < recipient.ID {
			items = append(items, senderItem, recipientItem)
		} else {
			items = append(items, recipientItem, senderItem)
		}
	} else {
		items = append(items, recipientItem)
	}

	nowAV, _ := attributevalue.Marshal(rec.UpdatedAt)
	recordIdx := len(items)
	items = append(items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                aws.String(s.TransactionsTableName),
			Key:                      map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: rec.ID}},
			UpdateExpression:         aws.String("SET #status = :to, updated_at = :now"),
			ConditionExpression:      aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":to":      &types.AttributeValueMemberS{Value: string(to)},
				":pending": &types.AttributeValueMemberS{Value: string(models.StatusPending)},
				":now":     nowAV,
			},
		},
	})

	_, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if idx := canceledReason(err); idx >= 0 {
			if idx == recordIdx {
				return storage.ErrInvalidStateTransition
			}
			return storage.ErrContention
		}
		return commitErr("transfer resolution", err)
	}
	return nil
}

func (s *Store) counterpartyUpdate(acct *models.Account, expr string, rec *models.TransactionRecord) *types.Update {
	values := map[string]types.AttributeValue{
		":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(acct.Version, 10)},
		":one":     &types.AttributeValueMemberN{Value: "1"},
	}
	// DynamoDB rejects expression values the expression does not reference.
	if strings.Contains(expr, ":amount") {
		values[":amount"] = numAV(rec.Amount)
	}
	return &types.Update{
		TableName:                 aws.String(s.AccountsTableName),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: acct.ID}},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("version = :version"),
		ExpressionAttributeValues: values,
	}
}
