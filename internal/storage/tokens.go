package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/model"
)

const tokenColumns = `id, user_id, store_id, name, token_hash, last_used_at, expires_at, created_at`

func scanToken(row rowScanner) (model.APIToken, error) {
	var (
		t        model.APIToken
		lastUsed sql.NullTime
		expires  sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.StoreID, &t.Name, &t.SecretHash, &lastUsed, &expires, &t.CreatedAt); err != nil {
		return model.APIToken{}, mapError(err)
	}
	t.LastUsedAt = timePtr(lastUsed)
	t.ExpiresAt = timePtr(expires)
	return t, nil
}

func (s *Storage) CreateAPIToken(ctx context.Context, t model.APIToken) (model.APIToken, error) {
	return scanToken(s.DB.QueryRowContext(ctx, `
		INSERT INTO api_tokens (user_id, store_id, name, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+tokenColumns,
		t.UserID, t.StoreID, t.Name, t.SecretHash, t.ExpiresAt))
}

func (s *Storage) APITokenByID(ctx context.Context, id int64) (model.APIToken, error) {
	return scanToken(s.DB.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = $1`, id))
}

func (s *Storage) ListAPITokens(ctx context.Context, userID int64) ([]model.APIToken, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.APIToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteAPIToken revokes one of userID's tokens. Tokens of other users are ErrNotFound.
func (s *Storage) DeleteAPIToken(ctx context.Context, userID, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`, id, userID)
	return affectedOne(res, err)
}

func (s *Storage) TouchAPIToken(ctx context.Context, id int64, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, at, id)
	return mapError(err)
}
