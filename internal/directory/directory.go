// Package directory resolves stores by public hostname or API key.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/storage"
	"storefront/internal/tenant"
)

// Backend is the read side of storage the directory needs.
type Backend interface {
	ActiveStoreByHost(ctx context.Context, host string) (model.Store, error)
	ActiveStoreByID(ctx context.Context, id int64) (model.Store, error)
	ActiveStoreByAPIKey(ctx context.Context, key string) (model.Store, model.APIKey, error)
}

// Resolution is what a successful lookup yields.
type Resolution struct {
	Store model.Store
	Key   model.APIKey
}

// Cache holds positive resolutions only. Set records the epoch read before the
// backend fetch; Get must treat entries from an older epoch as misses.
// InvalidateStore advances the epoch and drops the store's entries before it returns.
type Cache interface {
	Epoch(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) (Resolution, bool, error)
	Set(ctx context.Context, key string, res Resolution, epoch int64) error
	InvalidateStore(ctx context.Context, storeID int64) error
}

type Directory struct {
	backend Backend
	cache   Cache
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Directory)

func WithCache(c Cache) Option {
	return func(d *Directory) { d.cache = c }
}

// WithLookupTimeout bounds each backend call on top of the caller's deadline.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(d *Directory) { d.timeout = timeout }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Directory) { d.logger = logger }
}

func New(backend Backend, opts ...Option) *Directory {
	d := &Directory{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// StoreByHost finds the active store registered at exactly host.
func (d *Directory) StoreByHost(ctx context.Context, host string) (model.Store, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return model.Store{}, tenant.ErrTenantNotFound
	}

	res, err := d.lookup(ctx, "host:"+host, func(ctx context.Context) (Resolution, error) {
		st, err := d.backend.ActiveStoreByHost(ctx, host)
		return Resolution{Store: st}, err
	})
	if err != nil {
		return model.Store{}, err
	}
	return res.Store, nil
}

// StoreByID re-checks a store id carried by a session. Inactive, deleted and
// unknown stores are ErrTenantNotFound.
func (d *Directory) StoreByID(ctx context.Context, id int64) (model.Store, error) {
	if id <= 0 {
		return model.Store{}, tenant.ErrTenantNotFound
	}

	res, err := d.lookup(ctx, fmt.Sprintf("id:%d", id), func(ctx context.Context) (Resolution, error) {
		st, err := d.backend.ActiveStoreByID(ctx, id)
		return Resolution{Store: st}, err
	})
	if err != nil {
		return model.Store{}, err
	}
	return res.Store, nil
}

// StoreByAPIKey finds the store behind an active key owned by an active store.
// Every negative outcome is ErrTenantNotFound.
func (d *Directory) StoreByAPIKey(ctx context.Context, key string) (model.Store, model.APIKey, error) {
	if key == "" {
		return model.Store{}, model.APIKey{}, tenant.ErrTenantNotFound
	}

	res, err := d.lookup(ctx, "key:"+Fingerprint(key), func(ctx context.Context) (Resolution, error) {
		st, k, err := d.backend.ActiveStoreByAPIKey(ctx, key)
		return Resolution{Store: st, Key: k}, err
	})
	if err != nil {
		return model.Store{}, model.APIKey{}, err
	}
	return res.Store, res.Key, nil
}

// Invalidate drops cached resolutions for storeID. It is a no-op without a cache.
func (d *Directory) Invalidate(ctx context.Context, storeID int64) error {
	if d.cache == nil {
		return nil
	}
	if err := d.cache.InvalidateStore(ctx, storeID); err != nil {
		return fmt.Errorf("invalidate store %d: %w", storeID, err)
	}
	return nil
}

func (d *Directory) lookup(ctx context.Context, cacheKey string, fetch func(context.Context) (Resolution, error)) (Resolution, error) {
	cacheable := d.cache != nil
	var epoch int64
	if cacheable {
		res, ok, err := d.cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			// Fall through to the backend; a broken cache must not deny service.
			d.logger.Warn("directory cache read failed", zap.Error(err))
		case ok:
			metrics.DirectoryCache.WithLabelValues("hit").Inc()
			return res, nil
		default:
			metrics.DirectoryCache.WithLabelValues("miss").Inc()
		}
		if epoch, err = d.cache.Epoch(ctx); err != nil {
			d.logger.Warn("directory cache epoch read failed", zap.Error(err))
			cacheable = false
		}
	}

	lookupCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res, err := fetch(lookupCtx)
	if errors.Is(err, storage.ErrNotFound) {
		return Resolution{}, tenant.ErrTenantNotFound
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("directory lookup: %w", err)
	}

	if cacheable {
		if err := d.cache.Set(ctx, cacheKey, res, epoch); err != nil {
			d.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return res, nil
}
