/*
Package resilience wraps sony/gobreaker for graceful degradation.

# Overview

This package adapts the gobreaker circuit breaker to context-aware calls and
a generic Call helper. The shell server puts it in front of the history
database so a wedged or failing store is reported as an infrastructure error
immediately instead of stalling every tool call.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and open timeout
- Context cancellation does not count as a failure
- State change callbacks for logging

# Usage

	breaker := resilience.New("history", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(ctx, func(ctx context.Context) error {
		return store.insert(ctx, entry)
	})

	rows, err := resilience.Call(ctx, breaker, store.selectRows)

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
