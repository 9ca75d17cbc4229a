package export

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"earnLedger/internal/metrics"
)

const (
	defaultRetryBackoff = 100 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

// backoff retries sink writes. The delay doubles after every failed attempt
// up to max. Context errors end the loop at once.
type backoff struct {
	clock   clockwork.Clock
	retries int
	base    time.Duration
	max     time.Duration
	logger  *zap.Logger
}

func newBackoff(cfg Config, clock clockwork.Clock, logger *zap.Logger) backoff {
	b := backoff{
		clock:   clock,
		retries: cfg.MaxRetries,
		base:    cfg.RetryBackoff,
		max:     cfg.MaxBackoff,
		logger:  logger,
	}
	if b.retries < 0 {
		b.retries = 0
	}
	if b.base <= 0 {
		b.base = defaultRetryBackoff
	}
	if b.max <= 0 {
		b.max = defaultMaxBackoff
	}
	if b.max < b.base {
		b.max = b.base
	}
	return b
}

// next is the delay that follows delay.
func (b backoff) next(delay time.Duration) time.Duration {
	if delay >= b.max/2 {
		return b.max
	}
	return delay * 2
}

func (b backoff) do(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := b.base
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt >= b.retries {
			return err
		}

		metrics.ExportRetriesTotal.WithLabelValues(op).Inc()
		b.logger.Warn("export write failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := b.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}

		delay = b.next(delay)
	}
}
