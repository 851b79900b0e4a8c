// Package retry implements the fixed-delay retry orchestrator that wraps
// every flaky operation in the pipeline: source queries, backend calls and
// anything else that can fail transiently.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reporter receives one call per retry attempt, keyed by operation name.
// The session metrics tracker implements this.
type Reporter interface {
	TrackRetry(operation string)
}

// permanentError marks failures that backoff cannot heal (for example
// expired credentials). The orchestrator stops immediately on these.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the orchestrator will not retry it. The wrapped
// error stays reachable through errors.Is/As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Orchestrator re-invokes fallible operations a fixed number of times with a
// fixed inter-attempt delay. The delay blocks the calling worker on purpose:
// it is backpressure against a flaky upstream, not a scheduling concern.
type Orchestrator struct {
	attempts int
	delay    time.Duration
	reporter Reporter
	logger   *zap.Logger
}

// New builds an Orchestrator. Attempts below 1 are clamped to 1.
func New(attempts int, delay time.Duration, reporter Reporter, logger *zap.Logger) *Orchestrator {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		attempts: attempts,
		delay:    delay,
		reporter: reporter,
		logger:   logger,
	}
}

// Do invokes fn until it succeeds or the attempt budget is exhausted, then
// returns the last failure. Every retry is reported to the metrics reporter
// and logged at warning level. Context cancellation and permanent errors
// short-circuit the loop.
func (o *Orchestrator) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			o.logger.Warn("operation failed permanently",
				zap.String("operation", operation),
				zap.Error(lastErr),
			)
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == o.attempts {
			break
		}
		if o.reporter != nil {
			o.reporter.TrackRetry(operation)
		}
		o.logger.Warn("operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.attempts),
			zap.Duration("delay", o.delay),
			zap.Error(lastErr),
		)
		if err := o.wait(ctx); err != nil {
			return err
		}
	}
	o.logger.Error("operation exhausted retries",
		zap.String("operation", operation),
		zap.Int("attempts", o.attempts),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%s failed after %d attempts: %w", operation, o.attempts, lastErr)
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
