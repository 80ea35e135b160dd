// Package rates pulls currency and precious metal prices from third-party APIs.
package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"storefront/internal/model"
)

// Metals maps provider symbols to display names.
var Metals = []struct{ Code, Name string }{
	{"XAU", "Gold"},
	{"XAG", "Silver"},
	{"XPT", "Platinum"},
	{"XPD", "Palladium"},
}

type CurrencyClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type MetalClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed: %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	return body, nil
}

// Latest returns every conversion rate relative to base.
func (c *CurrencyClient) Latest(ctx context.Context, base string) ([]model.Currency, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", strings.TrimSuffix(c.BaseURL, "/"), c.APIKey, base)
	body, err := get(ctx, c.HTTP, url, nil)
	if err != nil {
		return nil, fmt.Errorf("currency api: %w", err)
	}

	doc := gjson.ParseBytes(body)
	if result := doc.Get("result").String(); result != "success" {
		return nil, fmt.Errorf("currency api: result %q: %s", result, doc.Get("error-type").String())
	}
	baseCode := doc.Get("base_code").String()
	if baseCode == "" {
		baseCode = base
	}

	var out []model.Currency
	doc.Get("conversion_rates").ForEach(func(code, rate gjson.Result) bool {
		out = append(out, model.Currency{
			BaseCode:     baseCode,
			Code:         code.String(),
			ExchangeRate: rate.Float(),
			Status:       model.StatusActive,
		})
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("currency api: no conversion rates")
	}
	return out, nil
}

// Quote fetches the latest price of metal in currency.
func (c *MetalClient) Quote(ctx context.Context, metal, name, currency string) (model.MetalRate, error) {
	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(c.BaseURL, "/"), metal, currency)
	header := http.Header{}
	header.Set("x-access-token", c.APIKey)
	header.Set("Content-Type", "application/json")

	body, err := get(ctx, c.HTTP, url, header)
	if err != nil {
		return model.MetalRate{}, fmt.Errorf("metal api %s: %w", metal, err)
	}

	doc := gjson.ParseBytes(body)
	if !doc.Get("price").Exists() {
		return model.MetalRate{}, fmt.Errorf("metal api %s: missing price", metal)
	}

	r := model.MetalRate{
		Metal:          firstNonEmpty(doc.Get("metal").String(), metal),
		Currency:       firstNonEmpty(doc.Get("currency").String(), currency),
		Name:           name,
		Exchange:       doc.Get("exchange").String(),
		Symbol:         doc.Get("symbol").String(),
		Price:          doc.Get("price").Float(),
		PrevClosePrice: doc.Get("prev_close_price").Float(),
		OpenPrice:      doc.Get("open_price").Float(),
		LowPrice:       doc.Get("low_price").Float(),
		HighPrice:      doc.Get("high_price").Float(),
		OpenTime:       doc.Get("open_time").Int(),
		Change:         doc.Get("ch").Float(),
		ChangePercent:  doc.Get("chp").Float(),
		Ask:            doc.Get("ask").Float(),
		Bid:            doc.Get("bid").Float(),
		PricePerGram:   map[string]float64{},
	}
	for _, k := range model.Karats {
		if v := doc.Get("price_gram_" + k); v.Exists() {
			r.PricePerGram[k] = v.Float()
		}
	}
	return r, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
