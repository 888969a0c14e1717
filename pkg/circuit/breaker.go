// Package circuit implements a small, dependency-free circuit breaker
// used to guard calls to the external personnel directory. When the
// backend is flaky, the API surface degrades (returns an empty
// personnel list) rather than blocking every request on a slow or dead
// dependency.
package circuit

import "sync"

// State is one of the three canonical breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// StateChange reports whether a RecordFailure/RecordSuccess call caused
// a transition, for callers that want to log state flips.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker is a simple failure-threshold breaker: after FailureThreshold
// consecutive failures it opens and every subsequent call is told to use
// the fallback; after SuccessThreshold consecutive successes while open
// it closes again.
type Breaker struct {
	name string

	mu               sync.Mutex
	state            State
	failureThreshold int
	successThreshold int
	failures         int
	successes        int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures required
// to open the circuit. Default 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.failureThreshold = n }
}

// WithSuccessThreshold sets the number of consecutive successes required
// to close the circuit again. Default 1.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) { b.successThreshold = n }
}

// New constructs a closed Breaker with the given name, used only for
// logging/metrics labels.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's label.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether the breaker is currently open.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure records a failed call. It returns useFallback=true when
// the caller should use its degraded path instead of the primary
// backend, along with the resulting StateChange.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0

	if b.state == StateOpen {
		return true, StateChange{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess records a successful call. It returns usePrimary=true
// when the circuit is closed (or has just closed), along with the
// resulting StateChange.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0

	if b.state == StateClosed {
		return true, StateChange{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

// Reset forces the breaker back to closed with zeroed counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
