// internal/storage/apikeys.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/model"
)

func (s *Storage) CreateAPIKey(ctx context.Context, k model.APIKey) (model.APIKey, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO api_keys (store_id, api_key, status)
		VALUES ($1, $2, $3)
		RETURNING id, store_id, api_key, status, created_at, updated_at
	`, k.StoreID, k.Key, k.Status)

	var out model.APIKey
	if err := row.Scan(&out.ID, &out.StoreID, &out.Key, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return model.APIKey{}, mapError(err)
	}
	return out, nil
}

// UpdateAPIKeyStatus changes one key and returns its owning store id so the
// caller can invalidate cached resolutions for that store.
func (s *Storage) UpdateAPIKeyStatus(ctx context.Context, id int64, status model.Status) (int64, error) {
	var storeID int64
	err := s.DB.QueryRowContext(ctx, `
		UPDATE api_keys SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING store_id
	`, status, id).Scan(&storeID)
	if err != nil {
		return 0, mapError(err)
	}
	return storeID, nil
}

func (s *Storage) ListAPIKeys(ctx context.Context, storeID int64) ([]model.APIKey, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, store_id, status, created_at, updated_at, deleted_at
		FROM api_keys
		WHERE store_id = $1
		ORDER BY id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var (
			k       model.APIKey
			deleted sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.StoreID, &k.Status, &k.CreatedAt, &k.UpdatedAt, &deleted); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		k.DeletedAt = timePtr(deleted)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
