package model

import "time"

// APIToken is a personal bearer token for api host consumers. It acts as its
// user, inside exactly one store. Only a hash of the secret is kept.
type APIToken struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	StoreID    int64      `db:"store_id" json:"store_id"`
	Name       string     `db:"name" json:"name"`
	SecretHash string     `db:"token_hash" json:"-"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
