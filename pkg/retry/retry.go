package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy describes a bounded exponential backoff. The zero value is not
// usable; call DefaultPolicy or fill every field.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable, when non-empty, limits retries to matching errors.
	Retryable []error
	Logger    *zap.Logger
}

func DefaultPolicy(log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		Logger:    log,
	}
}

// Run invokes operation up to p.Attempts times, doubling the delay between
// attempts and adding up to 10% jitter. The last error is returned when all
// attempts fail. Context cancellation aborts immediately.
func (p Policy) Run(ctx context.Context, operation func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = p.attempt(operation, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt >= attempts || !p.shouldRetry(lastErr) {
			return lastErr
		}

		p.log().Warn("Operation failed, backing off",
			zap.Error(lastErr),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + time.Duration(rand.Int63n(int64(delay)/10+1))):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

func (p Policy) attempt(operation func() error, n int) error {
	err := operation()
	if err == nil && n > 1 {
		p.log().Info("Operation succeeded after retry", zap.Int("attempt", n))
	}
	return err
}

func (p Policy) log() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p Policy) shouldRetry(err error) bool {
	if len(p.Retryable) == 0 {
		return true
	}
	for _, candidate := range p.Retryable {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
