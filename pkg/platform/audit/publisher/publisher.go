// Package publisher delivers journal events to an audit store.
//
// In synchronous mode Emit writes straight through. In async mode events go to
// a bounded ring buffer drained by a background goroutine, so Emit never blocks
// the caller; when the buffer overflows the oldest pending event is dropped and
// counted.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "rwaledger/pkg/platform/audit"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 250 * time.Millisecond
)

// Publisher emits journal events to a store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics

	buffer        *RingBuffer
	batchSize     int
	flushInterval time.Duration

	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables async delivery through a ring buffer of capacity.
func WithAsyncBuffer(capacity int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(capacity)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithFlushInterval bounds how long an event may wait in the buffer.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records event. The timestamp is set when missing. In async mode Emit
// never fails.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	if p.buffer.Enqueue(event) {
		p.metrics.IncDropped()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropped oldest event",
				"dropped_total", p.buffer.Dropped(),
			)
		}
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// List returns events touching address.
func (p *Publisher) List(ctx context.Context, address string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, address)
}

// Recent returns the newest limit events.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Pending returns the number of buffered events not yet delivered.
func (p *Publisher) Pending() int {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.Len()
}

// Dropped returns the number of events lost to buffer overflow.
func (p *Publisher) Dropped() int64 {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.Dropped()
}

// Close stops the drain goroutine after delivering everything buffered.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			p.flush()
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

// flush delivers until the buffer is empty. Store failures are logged and the
// event is not retried.
func (p *Publisher) flush() {
	ctx := context.Background()
	for {
		batch := p.buffer.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event); err != nil && p.logger != nil {
				p.logger.Error("failed to persist audit event",
					"action", event.Action,
					"sequence", event.Sequence,
					"error", err,
				)
			}
		}
	}
}
