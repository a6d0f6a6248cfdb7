// Package circuit guards calls to a flaky dependency. After a run of
// consecutive failures the breaker opens and calls are refused without
// touching the dependency. Once the cooldown has passed a single trial call is
// let through: its success closes the breaker, its failure re-opens it.
package circuit

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrOpen is returned by Allow and Do while the breaker refuses calls.
var ErrOpen = errors.New("circuit open")

// State is the breaker state. Its numeric value is exported as a gauge.
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

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
)

var (
	stateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dim_circuit_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half open)",
	}, []string{"breaker"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_circuit_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"breaker", "to"})

	rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_circuit_rejected_total",
		Help: "Calls refused while a circuit breaker was open",
	}, []string{"breaker"})
)

// Breaker is safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	failureThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	trialing         bool
	now              func() time.Time
	onChange         func(from, to State)
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before it lets a trial call through.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateChange registers a callback run on every transition, under the
// breaker lock. It must not call back into the breaker.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		cooldown:         defaultCooldown,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	stateGauge.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether calls are currently being refused outright.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call may proceed. A nil result obliges the caller
// to report the outcome with Success or Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			rejected.WithLabelValues(b.name).Inc()
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.trialing = true
		return nil
	default:
		if b.trialing {
			rejected.WithLabelValues(b.name).Inc()
			return ErrOpen
		}
		b.trialing = true
		return nil
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.trialing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialing = false
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
}

// Do runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.trialing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.failures = 0
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	stateGauge.WithLabelValues(b.name).Set(float64(to))
	transitions.WithLabelValues(b.name, to.String()).Inc()
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
