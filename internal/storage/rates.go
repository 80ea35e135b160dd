// internal/storage/rates.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/model"
)

// UpsertCurrencies writes every rate in one transaction.
func (s *Storage) UpsertCurrencies(ctx context.Context, rates []model.Currency) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO currencies (base_code, code, exchange_rate, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (base_code, code)
		DO UPDATE SET exchange_rate = EXCLUDED.exchange_rate, updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rates {
		if _, err := stmt.ExecContext(ctx, r.BaseCode, r.Code, r.ExchangeRate); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.BaseCode, r.Code, err)
		}
	}
	return tx.Commit()
}

// CurrencyRate returns how many units of code one unit of base buys.
func (s *Storage) CurrencyRate(ctx context.Context, base, code string) (float64, error) {
	var rate float64
	err := s.DB.QueryRowContext(ctx, `
		SELECT exchange_rate FROM currencies
		WHERE base_code = $1 AND code = $2 AND status = 'active'
	`, base, code).Scan(&rate)
	if err != nil {
		return 0, mapError(err)
	}
	return rate, nil
}

func (s *Storage) UpsertMetalRate(ctx context.Context, r model.MetalRate) error {
	grams, err := json.Marshal(r.PricePerGram)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO metal_rates (metal, currency, name, exchange, symbol, price, prev_close_price,
			open_price, low_price, high_price, open_time, ch, chp, ask, bid, price_gram)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (metal, currency) DO UPDATE SET
			name = EXCLUDED.name, exchange = EXCLUDED.exchange, symbol = EXCLUDED.symbol,
			price = EXCLUDED.price, prev_close_price = EXCLUDED.prev_close_price,
			open_price = EXCLUDED.open_price, low_price = EXCLUDED.low_price,
			high_price = EXCLUDED.high_price, open_time = EXCLUDED.open_time,
			ch = EXCLUDED.ch, chp = EXCLUDED.chp, ask = EXCLUDED.ask, bid = EXCLUDED.bid,
			price_gram = EXCLUDED.price_gram, updated_at = NOW()
	`, r.Metal, r.Currency, r.Name, r.Exchange, r.Symbol, r.Price, r.PrevClosePrice,
		r.OpenPrice, r.LowPrice, r.HighPrice, r.OpenTime, r.Change, r.ChangePercent, r.Ask, r.Bid, grams)
	return mapError(err)
}
