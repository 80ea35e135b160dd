// internal/tenant/scope.go
package tenant

import (
	"context"
	"fmt"
)

// Scope is passed to every tenant-owned data access. A bound scope restricts reads
// and stamps writes with its store id; an unscoped one must be asked for explicitly.
type Scope struct {
	storeID  int64
	unscoped bool
}

// ForStore returns a scope bound to storeID.
func ForStore(storeID int64) Scope {
	return Scope{storeID: storeID}
}

// Unscoped opts out of tenant filtering. Use only for background jobs, CLI
// tooling and platform-wide administration.
func Unscoped() Scope {
	return Scope{unscoped: true}
}

// ScopeFromContext derives a bound scope from the request context. It fails
// closed: a request with no resolved store gets ErrTenantNotResolved.
func ScopeFromContext(ctx context.Context) (Scope, error) {
	id, ok := StoreFromContext(ctx)
	if !ok {
		return Scope{}, ErrTenantNotResolved
	}
	return ForStore(id), nil
}

// StoreID returns the bound store id; ok is false for unscoped or zero scopes.
func (s Scope) StoreID() (int64, bool) {
	if s.unscoped || s.storeID == 0 {
		return 0, false
	}
	return s.storeID, true
}

func (s Scope) IsUnscoped() bool { return s.unscoped }

// Validate rejects the zero Scope so a forgotten argument cannot read across tenants.
func (s Scope) Validate() error {
	if s.unscoped {
		return nil
	}
	if s.storeID == 0 {
		return ErrTenantNotResolved
	}
	return nil
}

// Stamp resolves the store id a new record is created with. A bound scope wins
// over whatever the caller supplied; an unscoped create keeps the caller value.
func (s Scope) Stamp(requested *int64) (*int64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if id, ok := s.StoreID(); ok {
		return &id, nil
	}
	return requested, nil
}

func (s Scope) String() string {
	if s.unscoped {
		return "unscoped"
	}
	return fmt.Sprintf("store:%d", s.storeID)
}
