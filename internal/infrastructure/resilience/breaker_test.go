package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStorage = errors.New("database is locked")

func run(b *Breaker, fail bool) error {
	return b.Do(context.Background(), func(context.Context) error {
		if fail {
			return errStorage
		}
		return nil
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Timeout: time.Minute},
			requests:      []bool{false, false, false},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Timeout: time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			requests:      []bool{true, true, true},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				Timeout: time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 2
				},
			},
			requests:      []bool{true, false, true},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, fail := range tt.requests {
				_ = run(breaker, fail)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	breaker := New("history", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	require.ErrorIs(t, run(breaker, true), errStorage)

	called := false
	err := breaker.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	transitions := make(chan string, 3)
	breaker := New("history", Settings{
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(_ string, from, to State) {
			transitions <- from.String() + "->" + to.String()
		},
	})

	_ = run(breaker, true)
	assert.Equal(t, StateOpen, breaker.State())

	assert.Eventually(t, func() bool {
		return breaker.State() == StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, run(breaker, false))
	assert.Equal(t, StateClosed, breaker.State())

	close(transitions)
	var got []string
	for tr := range transitions {
		got = append(got, tr)
	}
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, got)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	breaker := New("history", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	err := breaker.Do(context.Background(), func(context.Context) error {
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestCallReturnsValue(t *testing.T) {
	breaker := New("history", Settings{})

	n, err := Call(context.Background(), breaker, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, uint32(1), breaker.Counts().TotalSuccesses)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}

func TestBreakerName(t *testing.T) {
	assert.Equal(t, "history", New("history", Settings{}).Name())
}
