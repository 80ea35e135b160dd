// Package notify delivers account messages (reset links, login codes).
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrThrottled means the recipient asked for too many messages recently.
var ErrThrottled = errors.New("too many messages for this recipient")

// Notifier delivers one message.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

// Log writes messages to the log instead of sending them. Development only:
// codes and links end up in the log output.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, to, subject, body string) error {
	l.logger.Info("notification", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

// Mailgun sends through the Mailgun HTTP API.
type Mailgun struct {
	mg     *mailgun.MailgunImpl
	from   string
	logger *zap.Logger
}

func NewMailgun(domain, apiKey, from string, logger *zap.Logger) *Mailgun {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailgun{mg: mailgun.NewMailgun(domain, apiKey), from: from, logger: logger}
}

func (m *Mailgun) Notify(ctx context.Context, to, subject, body string) error {
	msg := m.mg.NewMessage(m.from, subject, body, to)
	resp, id, err := m.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	m.logger.Debug("mail sent", zap.String("mailgun_id", id), zap.String("response", resp))
	return nil
}

// Throttled limits each recipient to a token bucket in front of another Notifier.
type Throttled struct {
	next  Notifier
	every rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewThrottled(next Notifier, every time.Duration, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, every: rate.Every(every), burst: burst, limiters: map[string]*rate.Limiter{}}
}

func (t *Throttled) limiter(to string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[to]
	if !ok {
		lim = rate.NewLimiter(t.every, t.burst)
		t.limiters[to] = lim
	}
	return lim
}

func (t *Throttled) Notify(ctx context.Context, to, subject, body string) error {
	if !t.limiter(to).Allow() {
		return ErrThrottled
	}
	return t.next.Notify(ctx, to, subject, body)
}

// Prune drops limiters whose buckets have refilled.
func (t *Throttled) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.limiters)
	for to, lim := range t.limiters {
		if int(lim.Tokens()) >= lim.Burst() {
			delete(t.limiters, to)
		}
	}
	return before - len(t.limiters)
}
