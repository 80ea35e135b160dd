package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

type memStore struct {
	mu         sync.Mutex
	currencies []model.Currency
	metals     map[string]model.MetalRate
	err        error
}

func (m *memStore) UpsertCurrencies(_ context.Context, rates []model.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.currencies = append(m.currencies, rates...)
	return nil
}

func (m *memStore) UpsertMetalRate(_ context.Context, r model.MetalRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.metals == nil {
		m.metals = map[string]model.MetalRate{}
	}
	m.metals[r.Metal+"/"+r.Currency] = r
	return nil
}

func TestCurrencyLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secret/latest/USD", r.URL.Path)
		w.Write([]byte(`{"result":"success","base_code":"USD","conversion_rates":{"USD":1,"EUR":0.9,"INR":83.5}}`))
	}))
	defer srv.Close()

	c := &CurrencyClient{BaseURL: srv.URL + "/", APIKey: "secret", HTTP: srv.Client()}
	rates, err := c.Latest(context.Background(), "USD")
	require.NoError(t, err)
	require.Len(t, rates, 3)

	byCode := map[string]float64{}
	for _, r := range rates {
		assert.Equal(t, "USD", r.BaseCode)
		assert.Equal(t, model.StatusActive, r.Status)
		byCode[r.Code] = r.ExchangeRate
	}
	assert.InDelta(t, 83.5, byCode["INR"], 1e-9)
}

func TestCurrencyLatestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	}))
	defer srv.Close()

	c := &CurrencyClient{BaseURL: srv.URL, APIKey: "bad", HTTP: srv.Client()}
	_, err := c.Latest(context.Background(), "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid-key")
}

func TestMetalQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-access-token") != "tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "/XAU/USD", r.URL.Path)
		w.Write([]byte(`{"metal":"XAU","currency":"USD","exchange":"FOREXCOM","symbol":"FOREXCOM:XAUUSD",
			"price":2350.5,"prev_close_price":2340,"ch":10.5,"chp":0.45,"price_gram_24k":75.57,"price_gram_22k":69.27}`))
	}))
	defer srv.Close()

	c := &MetalClient{BaseURL: srv.URL, APIKey: "tok", HTTP: srv.Client()}
	q, err := c.Quote(context.Background(), "XAU", "Gold", "USD")
	require.NoError(t, err)
	assert.Equal(t, "Gold", q.Name)
	assert.InDelta(t, 2350.5, q.Price, 1e-9)
	assert.InDelta(t, 75.57, q.PricePerGram["24k"], 1e-9)
	assert.NotContains(t, q.PricePerGram, "10k")

	c.APIKey = "wrong"
	_, err = c.Quote(context.Background(), "XAU", "Gold", "USD")
	require.Error(t, err)
}

func TestRunnerMetalJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":10}`))
	}))
	defer srv.Close()

	store := &memStore{}
	r := &Runner{Metal: &MetalClient{BaseURL: srv.URL, HTTP: srv.Client()}, Store: store}
	require.NoError(t, r.Run(context.Background(), NewJob(KindMetal)))
	assert.Len(t, store.metals, len(Metals))
	assert.Equal(t, "Palladium", store.metals["XPD/USD"].Name)
}

func TestRunnerFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","conversion_rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	boom := errors.New("db down")
	r := &Runner{
		Currency:     &CurrencyClient{BaseURL: srv.URL, HTTP: srv.Client()},
		CurrencyBase: "USD",
		Store:        &memStore{err: boom},
	}
	err := r.Run(context.Background(), NewJob(KindCurrency))
	assert.ErrorIs(t, err, boom)

	err = r.Run(context.Background(), Job{Kind: "gold"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

type rateTable map[string]float64

func (t rateTable) CurrencyRate(_ context.Context, base, code string) (float64, error) {
	v, ok := t[base+code]
	if !ok {
		return 0, errors.New("not found")
	}
	return v, nil
}

func TestConvert(t *testing.T) {
	table := rateTable{"USDEUR": 0.5, "USDINR": 80}
	ctx := context.Background()

	v, err := Convert(ctx, table, "eur", "INR")
	require.NoError(t, err)
	assert.InDelta(t, 160, v, 1e-9)

	v, err = Convert(ctx, table, "JPY", "JPY")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = Convert(ctx, table, "EUR", "GBP")
	assert.Error(t, err)
}
