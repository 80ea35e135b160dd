package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/model"
	"storefront/internal/storage"
)

const tokenSecretLength = 40

// HashSecret is the stored form of a bearer secret or reset token.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// TokenStore persists API tokens.
type TokenStore interface {
	CreateAPIToken(ctx context.Context, t model.APIToken) (model.APIToken, error)
	APITokenByID(ctx context.Context, id int64) (model.APIToken, error)
	ListAPITokens(ctx context.Context, userID int64) ([]model.APIToken, error)
	DeleteAPIToken(ctx context.Context, userID, id int64) error
	TouchAPIToken(ctx context.Context, id int64, at time.Time) error
}

// Tokens issues and checks "<id>|<secret>" bearer tokens.
type Tokens struct {
	store  TokenStore
	now    func() time.Time
	logger *zap.Logger
}

func NewTokens(store TokenStore, logger *zap.Logger) *Tokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tokens{store: store, now: time.Now, logger: logger}
}

// Issue creates a token for userID inside storeID. The plain token is
// returned once and never stored.
func (t *Tokens) Issue(ctx context.Context, userID, storeID int64, name string, expiresAt *time.Time) (model.APIToken, string, error) {
	secret, err := GenerateAPIKey("", tokenSecretLength)
	if err != nil {
		return model.APIToken{}, "", err
	}
	tok, err := t.store.CreateAPIToken(ctx, model.APIToken{
		UserID:     userID,
		StoreID:    storeID,
		Name:       name,
		SecretHash: HashSecret(secret),
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return model.APIToken{}, "", err
	}
	return tok, fmt.Sprintf("%d|%s", tok.ID, secret), nil
}

// Resolve checks a plain token. Malformed, unknown, revoked and expired
// tokens are all ErrInvalidCredentials.
func (t *Tokens) Resolve(ctx context.Context, plain string) (model.APIToken, error) {
	idPart, secret, ok := strings.Cut(plain, "|")
	if !ok || secret == "" {
		return model.APIToken{}, ErrInvalidCredentials
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return model.APIToken{}, ErrInvalidCredentials
	}

	tok, err := t.store.APITokenByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.APIToken{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.APIToken{}, fmt.Errorf("load api token: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(tok.SecretHash)) != 1 {
		return model.APIToken{}, ErrInvalidCredentials
	}
	now := t.now()
	if tok.Expired(now) {
		return model.APIToken{}, ErrInvalidCredentials
	}

	if err := t.store.TouchAPIToken(ctx, tok.ID, now); err != nil {
		t.logger.Warn("api token touch failed", zap.Int64("token_id", tok.ID), zap.Error(err))
	}
	tok.LastUsedAt = &now
	return tok, nil
}

func (t *Tokens) List(ctx context.Context, userID int64) ([]model.APIToken, error) {
	return t.store.ListAPITokens(ctx, userID)
}

func (t *Tokens) Revoke(ctx context.Context, userID, id int64) error {
	return t.store.DeleteAPIToken(ctx, userID, id)
}
