package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Rejections returned without running the guarded call
var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// State represents the circuit breaker state
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Counts holds the statistics for the current generation
type Counts = gobreaker.Counts

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxFailures = 5
)

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of trial calls allowed while half-open
	MaxRequests uint32
	// Interval clears closed-state counts periodically; zero keeps them
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// ReadyToTrip decides, after a failure, whether to open
	ReadyToTrip func(counts Counts) bool
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to every non-nil error except context cancellation.
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Breaker guards calls to one dependency
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout == 0 {
		settings.Timeout = defaultTimeout
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= defaultMaxFailures
		}
	}
	isFailure := settings.IsFailure
	if isFailure == nil {
		isFailure = defaultIsFailure
	}

	return &Breaker{
		cb: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:          name,
			MaxRequests:   settings.MaxRequests,
			Interval:      settings.Interval,
			Timeout:       settings.Timeout,
			ReadyToTrip:   settings.ReadyToTrip,
			OnStateChange: settings.OnStateChange,
			IsSuccessful: func(err error) bool {
				return !isFailure(err)
			},
		}),
	}
}

func defaultIsFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// Do runs fn if the breaker admits the call. A rejected call returns
// ErrCircuitOpen or ErrTooManyRequests without running fn.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// Call runs fn through b and returns its value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
