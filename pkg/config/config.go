// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config is the resolved runtime configuration.
type Config struct {
	HTTPPort string
	Store    string

	AccountsTable     string
	TransactionsTable string

	StartingBalance     decimal.Decimal
	MaxOperationAmount  decimal.Decimal
	DepositBalanceRatio decimal.Decimal
	CooldownWindow      time.Duration

	JWTSecret      string
	TokenTTL       time.Duration
	AdminUsernames []string
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORE", StoreDynamoDB)
	v.SetDefault("DYNAMODB_ACCOUNTS_TABLE_NAME", "accounts")
	v.SetDefault("DYNAMODB_TRANSACTIONS_TABLE_NAME", "transactions")
	v.SetDefault("STARTING_BALANCE", "100")
	v.SetDefault("MAX_OPERATION_AMOUNT", "1000000")
	v.SetDefault("DEPOSIT_BALANCE_RATIO", "0.75")
	v.SetDefault("COOLDOWN_SECONDS", 60)
	v.SetDefault("TOKEN_TTL_HOURS", 24)
	v.SetDefault("ADMIN_USERNAMES", "")
	v.AutomaticEnv()

	store := strings.ToLower(v.GetString("STORE"))
	if store != StoreDynamoDB && store != StoreMemory {
		return nil, fmt.Errorf("unknown STORE %q (want %s or %s)", store, StoreDynamoDB, StoreMemory)
	}

	starting, err := decimal.NewFromString(v.GetString("STARTING_BALANCE"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	maxOp, err := decimal.NewFromString(v.GetString("MAX_OPERATION_AMOUNT"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_OPERATION_AMOUNT: %w", err)
	}
	ratio, err := decimal.NewFromString(v.GetString("DEPOSIT_BALANCE_RATIO"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPOSIT_BALANCE_RATIO: %w", err)
	}

	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	var admins []string
	if raw := v.GetString("ADMIN_USERNAMES"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				admins = append(admins, name)
			}
		}
	}

	return &Config{
		HTTPPort:            v.GetString("HTTP_PORT"),
		Store:               store,
		AccountsTable:       v.GetString("DYNAMODB_ACCOUNTS_TABLE_NAME"),
		TransactionsTable:   v.GetString("DYNAMODB_TRANSACTIONS_TABLE_NAME"),
		StartingBalance:     starting,
		MaxOperationAmount:  maxOp,
		DepositBalanceRatio: ratio,
		CooldownWindow:      time.Duration(v.GetInt("COOLDOWN_SECONDS")) * time.Second,
		JWTSecret:           secret,
		TokenTTL:            time.Duration(v.GetInt("TOKEN_TTL_HOURS")) * time.Hour,
		AdminUsernames:      admins,
	}, nil
}
