package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, Timeout: time.Second, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), fastPolicy(), "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedIsUpstreamUnavailable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("503")
	})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 3, calls)
}

func TestDo_RejectedIsNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, Rejected(400, "bad input")
	})
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDo_InvalidResponseIsNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, Invalid("empty reply")
	})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.Equal(t, 1, calls)
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	p := fastPolicy()
	p.Timeout = 5 * time.Millisecond
	p.Attempts = 2
	_, err := Do(context.Background(), p, "test", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, fastPolicy(), "test", func(ctx context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(429))
	assert.True(t, Retryable(408))
	assert.True(t, Retryable(502))
	assert.False(t, Retryable(400))
	assert.False(t, Retryable(401))
}
