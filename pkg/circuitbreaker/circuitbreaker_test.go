package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             50 * time.Millisecond,
		HalfOpenMaxRequests: 2,
	}
}

// trip drives the breaker into the open state. State transitions are lazy
// (evaluated on the next Execute), so the final rejected call both flips and
// observes the open state.
func trip(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	}
	require.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
	require.Equal(t, StateOpen, cb.GetState())
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	trip(t, cb)

	// calls are rejected without running fn
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, ran)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errBoom })
	}
	require.NoError(t, cb.Execute(func() error { return nil }))

	// the streak restarted, two more failures are not enough to open
	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errBoom })
	}
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	trip(t, cb)

	time.Sleep(60 * time.Millisecond)

	// two successful probes, then the next call observes the closed state
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	trip(t, cb)

	time.Sleep(60 * time.Millisecond)

	// a failed probe reopens immediately
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitBreakerOpen)
}

func TestBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	trip(t, cb)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(func() error { return nil }))
}
