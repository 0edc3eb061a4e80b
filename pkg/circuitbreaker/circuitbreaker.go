// Package circuitbreaker implements the circuit breaker pattern,
// protecting callers from repeatedly hammering a failing dependency.
// No external dependencies - uses only standard library.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the circuit position.
type State int

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen rejects requests immediately.
	StateOpen
	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned while the circuit rejects requests.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned when the half-open probe budget is spent.
	ErrTooManyProbes = errors.New("too many probes in half-open state")
)

// Config holds circuit breaker behavior.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold is consecutive failures before the circuit opens.
	FailureThreshold int

	// SuccessThreshold is consecutive half-open successes before closing.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration

	// MaxProbes limits concurrent half-open requests.
	MaxProbes int

	// IsFailure decides whether an error counts against the circuit.
	// When nil, every non-nil error counts.
	IsFailure func(error) bool

	// OnStateChange is called on transitions, if set.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns sensible defaults: open after 5 failures, probe
// after 30s, close after 2 successes.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		MaxProbes:        1,
	}
}

// Breaker is a thread-safe circuit breaker.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// New creates a breaker from the config, filling zero fields with defaults.
func New(cfg Config) *Breaker {
	def := DefaultConfig(cfg.Name)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = def.MaxProbes
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// State returns the current circuit position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// currentState accounts for the open timeout elapsing. Caller holds mu.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// transition moves the circuit. Caller holds mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if to == StateOpen {
		b.openedAt = time.Now()
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(time.Now()) {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			return ErrTooManyProbes
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil
	if b.cfg.IsFailure != nil {
		failed = err != nil && b.cfg.IsFailure(err)
	}

	switch b.state {
	case StateClosed:
		if failed {
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.transition(StateOpen)
			}
		} else {
			b.failures = 0
		}
	case StateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if failed {
			b.transition(StateOpen)
		} else {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
	}
}
