// Package worker runs rate refresh jobs pulled from the job queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"storefront/internal/consumer"
	"storefront/internal/metrics"
	"storefront/internal/rates"
)

// ErrInvalidWorkerCount rejects a rescale below one worker.
var ErrInvalidWorkerCount = errors.New("worker count must be at least 1")

// JobRunner executes one decoded job.
type JobRunner interface {
	Run(ctx context.Context, job rates.Job) error
}

type WorkerPool struct {
	conn    *amqp.Connection
	queue   string
	runner  JobRunner
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	workers   int
	consumers []*consumer.Consumer

	// ctx bounds every in-flight job; Stop cancels it. Guarded by ctxMu so
	// handlers never wait on mu while Stop drains the consumers.
	ctxMu  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(conn *amqp.Connection, queue string, workerCount int, runner JobRunner, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		conn:    conn,
		queue:   queue,
		runner:  runner,
		timeout: 2 * time.Minute,
		logger:  logger.With(zap.String("queue", queue)),
		workers: workerCount,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start spawns one consumer per worker.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.startLocked()
}

func (wp *WorkerPool) startLocked() error {
	wp.ctxMu.Lock()
	if wp.ctx.Err() != nil {
		wp.ctx, wp.cancel = context.WithCancel(context.Background())
	}
	wp.ctxMu.Unlock()

	wp.logger.Info("starting worker pool", zap.Int("workers", wp.workers))
	for i := 0; i < wp.workers; i++ {
		tag := fmt.Sprintf("rates-worker-%d", i)
		c, err := consumer.StartConsumer(wp.conn, wp.queue, tag, wp.handle, wp.logger)
		if err != nil {
			wp.stopLocked()
			return err
		}
		metrics.WorkerActive.Inc()
		wp.consumers = append(wp.consumers, c)
	}
	return nil
}

// Stop cancels running jobs, then waits for the consumers to exit.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.stopLocked()
}

func (wp *WorkerPool) stopLocked() {
	wp.ctxMu.Lock()
	wp.cancel()
	wp.ctxMu.Unlock()

	for _, c := range wp.consumers {
		c.Stop()
		metrics.WorkerActive.Dec()
	}
	wp.consumers = nil
}

// Workers reports the configured concurrency.
func (wp *WorkerPool) Workers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.workers
}

// SetWorkerCount restarts the pool at a new concurrency level.
func (wp *WorkerPool) SetWorkerCount(n int) error {
	if n <= 0 {
		return ErrInvalidWorkerCount
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	if n == wp.workers {
		return nil
	}
	wp.logger.Info("rescaling worker pool", zap.Int("from", wp.workers), zap.Int("to", n))

	wp.stopLocked()
	wp.workers = n
	return wp.startLocked()
}

// handle acks a delivery after its job succeeds, requeues it when Stop
// interrupted the job and rejects it to the DLQ otherwise.
func (wp *WorkerPool) handle(msg amqp.Delivery) {
	job, err := wp.process(msg.Body)
	kind := string(job.Kind)
	if kind == "" {
		kind = "unknown"
	}

	if errors.Is(err, context.Canceled) {
		wp.logger.Warn("rate job interrupted by shutdown", zap.String("message_id", msg.MessageId), zap.String("kind", kind))
		metrics.JobsProcessed.WithLabelValues(kind, "requeued").Inc()
		_ = msg.Nack(false, true)
		return
	}
	if err != nil {
		wp.logger.Error("rate job failed",
			zap.String("message_id", msg.MessageId),
			zap.String("kind", kind),
			zap.Error(err),
		)
		metrics.JobsProcessed.WithLabelValues(kind, "failed").Inc()
		_ = msg.Reject(false) // send to DLQ
		return
	}

	_ = msg.Ack(false)
	metrics.JobsProcessed.WithLabelValues(kind, "ok").Inc()
}

func (wp *WorkerPool) process(body []byte) (rates.Job, error) {
	var job rates.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}

	wp.ctxMu.Lock()
	parent := wp.ctx
	wp.ctxMu.Unlock()

	ctx, cancel := context.WithTimeout(parent, wp.timeout)
	defer cancel()
	return job, wp.runner.Run(ctx, job)
}
