// internal/model/rate.go
package model

import "time"

// Currency is one exchange rate relative to BaseCode.
type Currency struct {
	ID           int64     `db:"id" json:"id"`
	BaseCode     string    `db:"base_code" json:"base_code"`
	Code         string    `db:"code" json:"code"`
	ExchangeRate float64   `db:"exchange_rate" json:"exchange_rate"`
	Status       Status    `db:"status" json:"status"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MetalRate is the latest quote for a precious metal in a currency.
type MetalRate struct {
	Metal          string             `db:"metal" json:"metal"`
	Currency       string             `db:"currency" json:"currency"`
	Name           string             `db:"name" json:"name"`
	Exchange       string             `db:"exchange" json:"exchange,omitempty"`
	Symbol         string             `db:"symbol" json:"symbol,omitempty"`
	Price          float64            `db:"price" json:"price"`
	PrevClosePrice float64            `db:"prev_close_price" json:"prev_close_price"`
	OpenPrice      float64            `db:"open_price" json:"open_price"`
	LowPrice       float64            `db:"low_price" json:"low_price"`
	HighPrice      float64            `db:"high_price" json:"high_price"`
	OpenTime       int64              `db:"open_time" json:"open_time"`
	Change         float64            `db:"ch" json:"ch"`
	ChangePercent  float64            `db:"chp" json:"chp"`
	Ask            float64            `db:"ask" json:"ask"`
	Bid            float64            `db:"bid" json:"bid"`
	PricePerGram   map[string]float64 `json:"price_gram"`
}

// Karats are the per-gram price buckets reported by the metal price provider.
var Karats = []string{"24k", "22k", "21k", "20k", "18k", "16k", "14k", "10k"}
