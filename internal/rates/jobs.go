package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/model"
)

// Kind names a rate refresh job.
type Kind string

const (
	KindCurrency Kind = "currency"
	KindMetal    Kind = "metal"
)

var ErrUnknownKind = errors.New("unknown job kind")

// Job is the queued message body.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewJob(kind Kind) Job {
	return Job{ID: uuid.New(), Kind: kind, RequestedAt: time.Now().UTC()}
}

// Store persists fetched rates.
type Store interface {
	UpsertCurrencies(ctx context.Context, rates []model.Currency) error
	UpsertMetalRate(ctx context.Context, r model.MetalRate) error
}

type Runner struct {
	Currency     *CurrencyClient
	Metal        *MetalClient
	CurrencyBase string
	Store        Store
	Logger       *zap.Logger
}

// Run executes one job. Any provider failure fails the job so it is dead-lettered.
func (r *Runner) Run(ctx context.Context, job Job) error {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("job_id", job.ID.String()), zap.String("kind", string(job.Kind)))

	switch job.Kind {
	case KindCurrency:
		rates, err := r.Currency.Latest(ctx, r.CurrencyBase)
		if err != nil {
			return err
		}
		if err := r.Store.UpsertCurrencies(ctx, rates); err != nil {
			return fmt.Errorf("store currencies: %w", err)
		}
		log.Info("currency rates refreshed", zap.Int("count", len(rates)))
		return nil

	case KindMetal:
		for _, m := range Metals {
			quote, err := r.Metal.Quote(ctx, m.Code, m.Name, "USD")
			if err != nil {
				return err
			}
			if err := r.Store.UpsertMetalRate(ctx, quote); err != nil {
				return fmt.Errorf("store metal rate %s: %w", m.Code, err)
			}
		}
		log.Info("metal rates refreshed", zap.Int("count", len(Metals)))
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
}
