// internal/storage/stores.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront/internal/model"
)

const storeColumns = `s.id, s.name, s.shop_name, s.shop_domain, s.email, s.phone, s.country,
		s.status, s.config, s.created_at, s.updated_at, s.deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner, extra ...any) (model.Store, error) {
	var (
		st      model.Store
		config  []byte
		deleted sql.NullTime
	)
	dest := []any{&st.ID, &st.Name, &st.ShopName, &st.ShopDomain, &st.Email, &st.Phone, &st.Country,
		&st.Status, &config, &st.CreatedAt, &st.UpdatedAt, &deleted}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Store{}, mapError(err)
	}
	if len(config) > 0 {
		st.Config = json.RawMessage(config)
	}
	st.DeletedAt = timePtr(deleted)
	return st, nil
}

// ActiveStoreByHost returns the active, not deleted store registered at host.
func (s *Storage) ActiveStoreByHost(ctx context.Context, host string) (model.Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores s
		WHERE s.shop_domain = $1
		  AND s.status = 'active'
		  AND s.deleted_at IS NULL
	`
	return scanStore(s.DB.QueryRowContext(ctx, query, host))
}

// ActiveStoreByID returns the store only while it is active and not deleted.
func (s *Storage) ActiveStoreByID(ctx context.Context, id int64) (model.Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores s
		WHERE s.id = $1
		  AND s.status = 'active'
		  AND s.deleted_at IS NULL
	`
	return scanStore(s.DB.QueryRowContext(ctx, query, id))
}

// ActiveStoreByAPIKey returns the store and key for an exact key match. Both the
// key and its store must be active; anything else is ErrNotFound.
func (s *Storage) ActiveStoreByAPIKey(ctx context.Context, key string) (model.Store, model.APIKey, error) {
	query := `
		SELECT ` + storeColumns + `,
		       k.id, k.store_id, k.api_key, k.status, k.created_at, k.updated_at
		FROM api_keys k
		JOIN stores s ON s.id = k.store_id
		WHERE k.api_key = $1
		  AND k.status = 'active'
		  AND k.deleted_at IS NULL
		  AND s.status = 'active'
		  AND s.deleted_at IS NULL
	`
	var k model.APIKey
	st, err := scanStore(s.DB.QueryRowContext(ctx, query, key),
		&k.ID, &k.StoreID, &k.Key, &k.Status, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return model.Store{}, model.APIKey{}, err
	}
	return st, k, nil
}

func (s *Storage) GetStore(ctx context.Context, id int64) (model.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores s WHERE s.id = $1 AND s.deleted_at IS NULL`
	return scanStore(s.DB.QueryRowContext(ctx, query, id))
}

func (s *Storage) ListStores(ctx context.Context, status model.Status) ([]model.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores s WHERE s.deleted_at IS NULL`
	var args []any
	if status != "" {
		args = append(args, status)
		query += ` AND s.status = $1`
	}
	query += ` ORDER BY s.id`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

func (s *Storage) CreateStore(ctx context.Context, st model.Store) (model.Store, error) {
	config := []byte(st.Config)
	if len(config) == 0 {
		config = []byte("{}")
	}
	query := `
		INSERT INTO stores (name, shop_name, shop_domain, email, phone, country, status, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + storeColumnsUnaliased
	return scanStore(s.DB.QueryRowContext(ctx, query,
		st.Name, st.ShopName, st.ShopDomain, st.Email, st.Phone, st.Country, st.Status, config))
}

const storeColumnsUnaliased = `id, name, shop_name, shop_domain, email, phone, country,
		status, config, created_at, updated_at, deleted_at`

// UpdateStoreStatus is a single-row atomic update.
func (s *Storage) UpdateStoreStatus(ctx context.Context, id int64, status model.Status) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE stores SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, status, id)
	return affectedOne(res, err)
}

// SoftDeleteStore hides the store from every lookup.
func (s *Storage) SoftDeleteStore(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE stores SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return affectedOne(res, err)
}

// PurgeStore hard deletes the store; keys and pages cascade.
func (s *Storage) PurgeStore(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
