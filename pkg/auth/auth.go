// Package auth is the gateway between credentials and ledger identities. It
// owns password hashing and session tokens; the engine only ever sees opaque
// hashes and resolved identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/egegvner/minibank/pkg/ledger"
	"github.com/egegvner/minibank/pkg/models"
	"github.com/egegvner/minibank/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a username/password pair does not
// authenticate. Unknown usernames and wrong passwords are indistinguishable
// on purpose.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for a malformed, forged or expired session token.
var ErrInvalidToken = errors.New("invalid token")

const defaultTokenTTL = 24 * time.Hour

// Config carries the gateway's settings.
type Config struct {
	// Secret signs session tokens (HS256).
	Secret string

	// TokenTTL bounds session token lifetime. Zero means 24h.
	TokenTTL time.Duration

	// AdminUsernames grants the admin capability. Injected from configuration
	// rather than baked in.
	AdminUsernames []string
}

// Gateway verifies credentials and resolves them to ledger identities.
type Gateway struct {
	engine   *ledger.Engine
	accounts storage.AccountReader
	secret   []byte
	tokenTTL time.Duration
	admins   map[string]struct{}
}

// NewGateway creates a Gateway over the engine and account reader.
func NewGateway(engine *ledger.Engine, accounts storage.AccountReader, cfg Config) *Gateway {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	admins := make(map[string]struct{}, len(cfg.AdminUsernames))
	for _, u := range cfg.AdminUsernames {
		admins[u] = struct{}{}
	}
	return &Gateway{
		engine:   engine,
		accounts: accounts,
		secret:   []byte(cfg.Secret),
		tokenTTL: ttl,
		admins:   admins,
	}
}

type claims struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Register hashes the password and creates the account through the engine.
func (g *Gateway) Register(ctx context.Context, username, password, visibleName, email string) (*models.Account, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ledger.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return g.engine.Register(ctx, username, string(hash), visibleName, email)
}

// Authenticate verifies the credentials and returns the resolved identity
// plus a signed session token.
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (models.Identity, string, error) {
	acct, err := g.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, "", ErrInvalidCredentials
		}
		return models.Identity{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return models.Identity{}, "", ErrInvalidCredentials
	}

	identity := g.identityFor(acct.ID, acct.Username)
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		AccountID: acct.ID,
		Username:  acct.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return identity, signed, nil
}

// ParseToken validates a session token and returns the identity it carries.
func (g *Gateway) ParseToken(tokenString string) (models.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	return g.identityFor(c.AccountID, c.Username), nil
}

// IsAdmin reports whether the identity carries the admin capability.
func (g *Gateway) IsAdmin(identity models.Identity) bool {
	return identity.Admin
}

func (g *Gateway) identityFor(accountID, username string) models.Identity {
	_, admin := g.admins[username]
	return models.Identity{AccountID: accountID, Username: username, Admin: admin}
}
