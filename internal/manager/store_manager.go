// Package manager provisions stores and API keys.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/model"
)

var ErrInvalidStore = errors.New("invalid store")

// Repository is the write side of store and key storage.
type Repository interface {
	CreateStore(ctx context.Context, st model.Store) (model.Store, error)
	GetStore(ctx context.Context, id int64) (model.Store, error)
	ListStores(ctx context.Context, status model.Status) ([]model.Store, error)
	UpdateStoreStatus(ctx context.Context, id int64, status model.Status) error
	SoftDeleteStore(ctx context.Context, id int64) error
	PurgeStore(ctx context.Context, id int64) error
	CreateAPIKey(ctx context.Context, k model.APIKey) (model.APIKey, error)
	UpdateAPIKeyStatus(ctx context.Context, id int64, status model.Status) (int64, error)
	ListAPIKeys(ctx context.Context, storeID int64) ([]model.APIKey, error)
}

// Invalidator drops cached directory resolutions for a store.
type Invalidator interface {
	Invalidate(ctx context.Context, storeID int64) error
}

type StoreManager struct {
	repo      Repository
	directory Invalidator
	keyPrefix string
	keyLength int
	logger    *zap.Logger
}

func NewStoreManager(repo Repository, directory Invalidator, keyPrefix string, keyLength int, logger *zap.Logger) *StoreManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreManager{
		repo:      repo,
		directory: directory,
		keyPrefix: keyPrefix,
		keyLength: keyLength,
		logger:    logger,
	}
}

// CreateStore registers a store. ShopDomain is stored lowercased.
func (m *StoreManager) CreateStore(ctx context.Context, st model.Store) (model.Store, error) {
	st.Name = strings.TrimSpace(st.Name)
	st.ShopDomain = strings.ToLower(strings.TrimSpace(st.ShopDomain))
	if st.Name == "" || st.ShopDomain == "" {
		return model.Store{}, fmt.Errorf("%w: name and shop_domain are required", ErrInvalidStore)
	}
	if st.Status == "" {
		st.Status = model.StatusActive
	}
	if _, err := model.ParseStatus(string(st.Status)); err != nil {
		return model.Store{}, err
	}
	if st.ShopName == "" {
		st.ShopName = st.Name
	}

	created, err := m.repo.CreateStore(ctx, st)
	if err != nil {
		return model.Store{}, err
	}
	m.logger.Info("store created", zap.Int64("store_id", created.ID), zap.String("shop_domain", created.ShopDomain))
	return created, nil
}

func (m *StoreManager) GetStore(ctx context.Context, id int64) (model.Store, error) {
	return m.repo.GetStore(ctx, id)
}

func (m *StoreManager) ListStores(ctx context.Context, status model.Status) ([]model.Store, error) {
	return m.repo.ListStores(ctx, status)
}

// SetStoreStatus takes effect for lookups once it returns.
func (m *StoreManager) SetStoreStatus(ctx context.Context, id int64, status model.Status) error {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}
	if err := m.repo.UpdateStoreStatus(ctx, id, status); err != nil {
		return err
	}
	m.logger.Info("store status changed", zap.Int64("store_id", id), zap.String("status", string(status)))
	return m.invalidate(ctx, id)
}

func (m *StoreManager) DeleteStore(ctx context.Context, id int64) error {
	if err := m.repo.SoftDeleteStore(ctx, id); err != nil {
		return err
	}
	m.logger.Info("store deleted", zap.Int64("store_id", id))
	return m.invalidate(ctx, id)
}

// PurgeStore hard deletes the store together with its keys and pages.
func (m *StoreManager) PurgeStore(ctx context.Context, id int64) error {
	if err := m.repo.PurgeStore(ctx, id); err != nil {
		return err
	}
	m.logger.Warn("store purged", zap.Int64("store_id", id))
	return m.invalidate(ctx, id)
}

// IssueAPIKey generates a new key for storeID. The returned Key is the only
// time the plaintext is handed out.
func (m *StoreManager) IssueAPIKey(ctx context.Context, storeID int64, status model.Status) (model.APIKey, error) {
	if status == "" {
		status = model.StatusActive
	}
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.APIKey{}, err
	}
	if _, err := m.repo.GetStore(ctx, storeID); err != nil {
		return model.APIKey{}, fmt.Errorf("store %d: %w", storeID, err)
	}

	key, err := auth.GenerateAPIKey(m.keyPrefix, m.keyLength)
	if err != nil {
		return model.APIKey{}, err
	}
	created, err := m.repo.CreateAPIKey(ctx, model.APIKey{StoreID: storeID, Key: key, Status: status})
	if err != nil {
		return model.APIKey{}, err
	}
	m.logger.Info("api key issued", zap.Int64("store_id", storeID), zap.Int64("api_key_id", created.ID))
	return created, nil
}

func (m *StoreManager) SetAPIKeyStatus(ctx context.Context, keyID int64, status model.Status) error {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return err
	}
	storeID, err := m.repo.UpdateAPIKeyStatus(ctx, keyID, status)
	if err != nil {
		return err
	}
	m.logger.Info("api key status changed",
		zap.Int64("store_id", storeID),
		zap.Int64("api_key_id", keyID),
		zap.String("status", string(status)),
	)
	return m.invalidate(ctx, storeID)
}

func (m *StoreManager) ListAPIKeys(ctx context.Context, storeID int64) ([]model.APIKey, error) {
	return m.repo.ListAPIKeys(ctx, storeID)
}

func (m *StoreManager) invalidate(ctx context.Context, storeID int64) error {
	if m.directory == nil {
		return nil
	}
	if err := m.directory.Invalidate(ctx, storeID); err != nil {
		m.logger.Error("directory invalidation failed", zap.Int64("store_id", storeID), zap.Error(err))
		return err
	}
	return nil
}
