// internal/model/store.go
package model

import (
	"encoding/json"
	"time"
)

// Store is a tenant. ShopDomain is the exact hostname the public site is served on.
type Store struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	ShopName   string          `db:"shop_name" json:"shop_name,omitempty"`
	ShopDomain string          `db:"shop_domain" json:"shop_domain"`
	Email      string          `db:"email" json:"email,omitempty"`
	Phone      string          `db:"phone" json:"phone,omitempty"`
	Country    string          `db:"country" json:"country,omitempty"`
	Status     Status          `db:"status" json:"status"`
	Config     json.RawMessage `db:"config" json:"config,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// APIKey maps an opaque bearer secret to exactly one store.
type APIKey struct {
	ID        int64      `db:"id" json:"id"`
	StoreID   int64      `db:"store_id" json:"store_id"`
	Key       string     `db:"api_key" json:"-"`
	Status    Status     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
