package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = NewTransientError(errors.New("tile server 503"), 503)

func failing(_ context.Context) (int, error) { return 0, errUpstream }
func ok(_ context.Context) (int, error)      { return 42, nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		_, err := ExecuteVal(context.Background(), cb, failing)
		require.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	calls := 0
	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	_, _ = ExecuteVal(context.Background(), cb, failing)
	v, err := ExecuteVal(context.Background(), cb, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	_, _ = ExecuteVal(context.Background(), cb, failing)

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	notFound := errors.New("tile not found")

	for i := 0; i < 5; i++ {
		_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 0, notFound })
		assert.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failing)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A failed probe reopens the circuit.
	_, _ = ExecuteVal(context.Background(), cb, failing)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Minute)
	_, err := ExecuteVal(context.Background(), cb, ok)
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAllowsOneProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failing)
	require.Equal(t, CircuitOpen, cb.State())
	now = now.Add(2 * time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- err
	}()
	<-started

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			calls++
			return 1, nil
		})
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Zero(t, calls)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, CircuitClosed, cb.State())

	_, err := ExecuteVal(context.Background(), cb, ok)
	assert.NoError(t, err)
}

func TestCircuitBreaker_PanickingProbeReleasesSlot(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, failing)
	now = now.Add(2 * time.Minute)

	assert.Panics(t, func() {
		_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			panic("decoder bug")
		})
	})

	v, err := ExecuteVal(context.Background(), cb, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = ExecuteVal(context.Background(), cb, failing)
			} else {
				_, _ = ExecuteVal(context.Background(), cb, ok)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
