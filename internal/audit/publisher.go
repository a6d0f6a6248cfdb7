package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dim/pkg/domain"
	dErrors "dim/pkg/domain-errors"
)

// ErrClosed is returned by Emit once Close has been called.
var ErrClosed = errors.New("audit publisher closed")

const defaultPersistTimeout = 5 * time.Second

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dim_audit_events_total",
		Help: "Audit events by action and outcome (persisted, queued, dropped, failed)",
	}, []string{"action", "outcome"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dim_audit_queue_depth",
		Help: "Audit events waiting to be persisted",
	})
)

// Publisher records audit events for holders, issuers and relying parties.
// Events are append-only. In async mode a single worker persists them in
// emission order and Close drains what is queued.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events for the background worker.
// When the queue is full new events are dropped rather than blocking the caller.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublisherClock stamps events that arrive without a timestamp.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPersistTimeout bounds each store write made by the async worker.
func WithPersistTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		timeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.events != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.events {
		queueDepth.Dec()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.store.Append(ctx, event)
		cancel()
		if err != nil {
			eventsTotal.WithLabelValues(string(event.Action), "failed").Inc()
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"actor", event.Actor,
			)
			continue
		}
		eventsTotal.WithLabelValues(string(event.Action), "persisted").Inc()
	}
}

// Close stops accepting events and waits until the queue is drained.
// It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.events != nil {
		close(p.events)
	}
	p.mu.Unlock()
	if p.done != nil {
		<-p.done
	}
}

// Emit records event. Unknown actions are rejected with CodeInternal since
// they can only come from a programming error. In async mode a full queue
// drops the event and Emit still returns nil so the domain operation stands.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if !event.Action.Known() {
		return dErrors.New(dErrors.CodeInternal, "unknown audit action "+string(event.Action))
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Timestamp = event.Timestamp.UTC()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.events == nil {
		if err := p.store.Append(ctx, event); err != nil {
			eventsTotal.WithLabelValues(string(event.Action), "failed").Inc()
			return err
		}
		eventsTotal.WithLabelValues(string(event.Action), "persisted").Inc()
		return nil
	}
	select {
	case p.events <- event:
		queueDepth.Inc()
		eventsTotal.WithLabelValues(string(event.Action), "queued").Inc()
	default:
		eventsTotal.WithLabelValues(string(event.Action), "dropped").Inc()
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"actor", event.Actor,
		)
	}
	return nil
}

// List returns the trail recorded for actor, oldest first.
func (p *Publisher) List(ctx context.Context, actor domain.Address) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
