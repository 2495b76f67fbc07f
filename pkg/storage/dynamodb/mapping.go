package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/shopspring/decimal"
)

// dbDecimal marshals decimal amounts as DynamoDB numbers so that
// UpdateExpression arithmetic (`balance = balance + :amount`) operates on them
// natively.
type dbDecimal struct {
	decimal.Decimal
}

func (d dbDecimal) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.String()}, nil
}

func (d *dbDecimal) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("expected number attribute for decimal, got %T", av)
	}
	parsed, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("failed to parse decimal attribute: %w", err)
	}
	d.Decimal = parsed
	return nil
}

func numAV(d decimal.Decimal) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: d.String()}
}

// dbAccount is the persisted shape of an account.
type dbAccount struct {
	ID           string     `dynamodbav:"id"`
	Username     string     `dynamodbav:"username"`
	VisibleName  string     `dynamodbav:"visible_name,omitempty"`
	Email        string     `dynamodbav:"email,omitempty"`
	PasswordHash string     `dynamodbav:"password_hash,omitempty"`
	Balance      dbDecimal  `dynamodbav:"balance"`
	Suspended    bool       `dynamodbav:"suspended"`
	Deposits     int64      `dynamodbav:"deposits"`
	Withdrawals  int64      `dynamodbav:"withdrawals"`
	TransfersIn  int64      `dynamodbav:"transfers_in"`
	TransfersOut int64      `dynamodbav:"transfers_out"`
	LastMutation *time.Time `dynamodbav:"last_mutation,omitempty"`
	Version      int64      `dynamodbav:"version"`
	CreatedAt    time.Time  `dynamodbav:"created_at"`
}

func toDBAccount(a *models.Account) *dbAccount {
	return &dbAccount{
		ID:           a.ID,
		Username:     a.Username,
		VisibleName:  a.VisibleName,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Balance:      dbDecimal{a.Balance},
		Suspended:    a.Suspended,
		Deposits:     a.Deposits,
		Withdrawals:  a.Withdrawals,
		TransfersIn:  a.TransfersIn,
		TransfersOut: a.TransfersOut,
		LastMutation: a.LastMutation,
		Version:      a.Version,
		CreatedAt:    a.CreatedAt,
	}
}

func (a *dbAccount) toDomain() *models.Account {
	return &models.Account{
		ID:           a.ID,
		Username:     a.Username,
		VisibleName:  a.VisibleName,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Balance:      a.Balance.Decimal,
		Suspended:    a.Suspended,
		Deposits:     a.Deposits,
		Withdrawals:  a.Withdrawals,
		TransfersIn:  a.TransfersIn,
		TransfersOut: a.TransfersOut,
		LastMutation: a.LastMutation,
		Version:      a.Version,
		CreatedAt:    a.CreatedAt,
	}
}

// dbRecord is the persisted shape of a transaction record.
type dbRecord struct {
	ID                   string    `dynamodbav:"id"`
	AccountID            string    `dynamodbav:"account_id"`
	Kind                 string    `dynamodbav:"kind"`
	Amount               dbDecimal `dynamodbav:"amount"`
	ResultingBalance     dbDecimal `dynamodbav:"resulting_balance"`
	CounterpartyUsername string    `dynamodbav:"counterparty_username,omitempty"`
	Status               string    `dynamodbav:"status"`
	CreatedAt            time.Time `dynamodbav:"created_at"`
	UpdatedAt            time.Time `dynamodbav:"updated_at"`
}

func toDBRecord(r *models.TransactionRecord) *dbRecord {
	return &dbRecord{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		Kind:                 string(r.Kind),
		Amount:               dbDecimal{r.Amount},
		ResultingBalance:     dbDecimal{r.ResultingBalance},
		CounterpartyUsername: r.CounterpartyUsername,
		Status:               string(r.Status),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func (r *dbRecord) toDomain() *models.TransactionRecord {
	return &models.TransactionRecord{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		Kind:                 models.TransactionKind(r.Kind),
		Amount:               r.Amount.Decimal,
		ResultingBalance:     r.ResultingBalance.Decimal,
		CounterpartyUsername: r.CounterpartyUsername,
		Status:               models.TransactionStatus(r.Status),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}
