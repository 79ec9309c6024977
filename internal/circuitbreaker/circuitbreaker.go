// Package circuitbreaker guards upstream provider calls: after repeated
// failures the breaker opens and fails fast, then probes the upstream once a
// cooldown has passed.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the upstream while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a failure-counting circuit breaker. Closed passes calls through
// and counts consecutive failures; Open fails fast until the cooldown
// elapses; HalfOpen lets probe calls through and closes again after enough
// consecutive successes.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	openedAt     time.Time
	maxFailures  int
	minSuccesses int
	cooldown     time.Duration
	onTransition func(from, to State)
	now          func() time.Time
}

type Config struct {
	// MaxFailures is the consecutive-failure count that opens the breaker.
	MaxFailures int
	// MinSuccesses is the consecutive probe successes needed to close again.
	MinSuccesses int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// OnTransition is called on every state change. It runs under the
	// breaker's lock and must not call back into the breaker.
	OnTransition func(from, to State)
}

func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MinSuccesses <= 0 {
		cfg.MinSuccesses = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		state:        StateClosed,
		maxFailures:  cfg.MaxFailures,
		minSuccesses: cfg.MinSuccesses,
		cooldown:     cfg.Cooldown,
		onTransition: cfg.OnTransition,
		now:          time.Now,
	}
}

// Do runs fn if the breaker allows it. A context error from fn counts as a
// failure like any other.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.successes = 0
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.openedAt = b.now()
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.transition(StateOpen)
		b.failures = 0
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state != StateHalfOpen {
		return
	}
	b.successes++
	if b.successes >= b.minSuccesses {
		b.transition(StateClosed)
		b.successes = 0
	}
}

// transition must be called with the lock held. The callback runs under the
// lock, so it must not call back into the breaker.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.onTransition != nil && from != to {
		b.onTransition(from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
