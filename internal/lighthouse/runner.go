package lighthouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrAuditsExhausted is returned when every primary attempt failed and no
	// fallback is configured. Callers treat it as fatal.
	ErrAuditsExhausted = errors.New("lighthouse: audit attempts exhausted")
	// ErrAuditUnavailable is returned when the fallback failed too. Callers
	// degrade the page instead of failing.
	ErrAuditUnavailable = errors.New("lighthouse: audit unavailable")
)

// Auditor runs a browser audit for a single URL.
type Auditor interface {
	Audit(ctx context.Context, targetURL string) (*Result, error)
}

// State is a step of the audit attempt chain.
type State int

const (
	StatePrimary State = iota
	StateRetry
	StateFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateRetry:
		return "primary-retry"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options control the attempt chain.
type Options struct {
	Retries         int  // primary retries after the first attempt
	UseTerminal     bool // try the fallback once primary attempts are exhausted
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Runner walks primary -> primary-retry(<=Retries) -> fallback -> failed.
type Runner struct {
	primary  Auditor
	fallback Auditor
	opts     Options
	logger   *slog.Logger
}

// NewRunner returns a Runner. fallback may be nil, in which case exhausting
// the primary attempts always fails.
func NewRunner(primary, fallback Auditor, opts Options, logger *slog.Logger) *Runner {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 10 * time.Second
	}
	return &Runner{primary: primary, fallback: fallback, opts: opts, logger: logger}
}

func (r *Runner) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.opts.InitialInterval
	eb.MaxInterval = r.opts.MaxInterval
	eb.MaxElapsedTime = 0

	retries := max(r.opts.Retries, 0)
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
	b.Reset()
	return b
}

// Run audits targetURL. It returns ErrAuditsExhausted or ErrAuditUnavailable
// wrapped with the last underlying failure when no path succeeds.
func (r *Runner) Run(ctx context.Context, targetURL string) (*Result, error) {
	logger := r.logger.With("url", targetURL)
	b := r.backOff(ctx)

	state := StatePrimary
	attempts := 0
	var lastErr error

	for {
		switch state {
		case StatePrimary, StateRetry:
			attempts++
			res, err := r.primary.Audit(ctx, targetURL)
			if err == nil {
				return res, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrAuditsExhausted, ctx.Err())
			}

			wait := b.NextBackOff()
			if wait == backoff.Stop {
				state = StateFailed
				if r.opts.UseTerminal && r.fallback != nil {
					state = StateFallback
				}
				logger.Warn("browser audit attempts exhausted", "attempt", attempts, "state", state, "error", err)
				continue
			}

			logger.Warn("browser audit failed, retrying", "attempt", attempts, "wait", wait.String(), "error", err)
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAuditsExhausted, err)
			}
			state = StateRetry

		case StateFallback:
			res, err := r.fallback.Audit(ctx, targetURL)
			if err == nil {
				return res, nil
			}
			return nil, fmt.Errorf("%w: %w", ErrAuditUnavailable, errors.Join(lastErr, err))

		default:
			return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrAuditsExhausted, attempts, lastErr)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
