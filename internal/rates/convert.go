package rates

import (
	"context"
	"fmt"
	"strings"
)

// RateLookup returns how many units of code one unit of base buys.
type RateLookup interface {
	CurrencyRate(ctx context.Context, base, code string) (float64, error)
}

// Convert returns the cross rate from -> to using USD-based rows.
func Convert(ctx context.Context, lookup RateLookup, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	usdToFrom, err := lookup.CurrencyRate(ctx, "USD", from)
	if err != nil {
		return 0, fmt.Errorf("exchange rate not found for %s: %w", from, err)
	}
	usdToTo, err := lookup.CurrencyRate(ctx, "USD", to)
	if err != nil {
		return 0, fmt.Errorf("exchange rate not found for %s: %w", to, err)
	}
	if usdToFrom == 0 {
		return 0, fmt.Errorf("exchange rate for %s is zero", from)
	}
	return usdToTo / usdToFrom, nil
}
