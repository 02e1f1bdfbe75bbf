// Package upstream runs calls to external services (embedding, text
// generation) with a per-attempt timeout and a fixed number of retries.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"docintel/internal/domain"
)

// Policy bounds how an upstream call is attempted.
type Policy struct {
	Attempts  uint
	Timeout   time.Duration // per attempt
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

// DefaultPolicy mirrors the retry settings used for hosted model APIs.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		Timeout:   30 * time.Second,
		BaseDelay: 200 * time.Millisecond,
		MaxDelay:  5 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts == 0 {
		p.Attempts = d.Attempts
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return p
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return retry.Unrecoverable(err)
}

// Rejected wraps a 4xx refusal so it is neither retried nor reported as an
// outage.
func Rejected(status int, msg string) error {
	return Permanent(fmt.Errorf("%w (status %d): %s", domain.ErrRejected, status, msg))
}

// Invalid wraps an unusable reply.
func Invalid(format string, args ...any) error {
	return Permanent(fmt.Errorf("%w: %s", domain.ErrInvalidResponse, fmt.Sprintf(format, args...)))
}

// Retryable reports whether an HTTP status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// Do runs fn until it succeeds, returns a permanent error, or the attempts
// are used up. Each attempt gets its own timeout. Exhausted retries are
// reported as domain.ErrUpstreamUnavailable; cancellation of ctx is returned
// as ctx.Err().
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	out, err := retry.DoWithData(
		func() (T, error) {
			if err := ctx.Err(); err != nil {
				return zero, Permanent(err)
			}
			actx, cancel := context.WithTimeout(ctx, p.Timeout)
			defer cancel()
			return fn(actx)
		},
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.BaseDelay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.Logger.Warn("upstream call failed, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(err, domain.ErrRejected) || errors.Is(err, domain.ErrInvalidResponse) {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return zero, fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}
