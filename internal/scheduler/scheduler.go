// Package scheduler publishes rate refresh jobs on cron schedules.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storefront/internal/rates"
)

type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

type Scheduler struct {
	cron      *cron.Cron
	publisher Publisher
	queue     string
	logger    *zap.Logger
}

func New(publisher Publisher, queue string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		queue:     queue,
		logger:    logger,
	}
}

// Add registers kind to be enqueued on spec (standard cron or @every).
func (s *Scheduler) Add(spec string, kind rates.Kind) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Trigger(ctx, kind); err != nil {
			s.logger.Error("failed to enqueue rate job", zap.String("kind", string(kind)), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", kind, spec, err)
	}
	return nil
}

// Trigger enqueues one job now.
func (s *Scheduler) Trigger(ctx context.Context, kind rates.Kind) error {
	job := rates.NewJob(kind)
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, s.queue, job.ID.String(), body); err != nil {
		return err
	}
	s.logger.Info("rate job enqueued", zap.String("kind", string(kind)), zap.String("job_id", job.ID.String()))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running triggers.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
