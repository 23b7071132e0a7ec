package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("503"), 503)
		}
		return "tile", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tile", v)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastRetry(4), func(_ context.Context) (int, error) {
		calls++
		return 7, NewTransientError(errors.New("reset"), 0)
	})
	require.Error(t, err)
	assert.Zero(t, v)
	assert.Equal(t, 4, calls)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return errors.New("tile not found")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := fastRetry(10)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("timeout"), 0)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_HooksAndCustomPredicate(t *testing.T) {
	var retried []int
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error { return errors.New("any") })
	assert.Equal(t, []int{1, 2}, retried)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, backoff(0, cfg))
	assert.Equal(t, 400*time.Millisecond, backoff(2, cfg))
	assert.Equal(t, time.Second, backoff(10, cfg))

	cfg.JitterFraction = 0.5
	for i := 0; i < 20; i++ {
		d := backoff(0, cfg)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(RetryConfig{JitterFraction: -1})
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultRetryConfig().InitialBackoff, cfg.InitialBackoff)
	assert.Zero(t, cfg.JitterFraction)
}
