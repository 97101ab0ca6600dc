// Package bus implements the process-wide progress event bus. Task runners
// publish progress events concurrently; any number of subscribers receive
// every event published after they subscribe, in publish order, each through
// an independent bounded queue.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"youpy/internal/config"
	"youpy/internal/entity"
	"youpy/internal/errs"
	"youpy/internal/observability"

	"github.com/google/uuid"
)

// Bus fans progress events out to subscribers. Publish never blocks on a
// slow subscriber: each subscriber owns a bounded queue and the oldest
// queued event is dropped on overflow, since a progress event is an
// ephemeral signal superseded by the next one.
type Bus struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool

	startOnce sync.Once
}

type subscriber struct {
	// mu serializes enqueue and close for this queue only; delivery to one
	// subscriber never holds a lock shared with another.
	mu     sync.Mutex
	events chan entity.ProgressEvent
	closed bool
}

// New creates a new event bus.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Bus {
	return &Bus{
		log:     log.With(slog.String("package", "bus")),
		cfg:     cfg,
		metrics: metrics,
		subs:    make(map[string]*subscriber),
	}
}

// Start launches the keepalive loop. Keepalive events are emitted at a fixed
// interval so long-idle subscriptions are not reclaimed by intermediate
// infrastructure. The bus shuts down when ctx is done.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.keepaliveLoop(ctx)
	})
}

func (b *Bus) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Bus.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.close(ctx)

			return
		case <-ticker.C:
			b.Publish(entity.ProgressEvent{Status: entity.EventKeepalive})
		}
	}
}

// Publish delivers the event to every currently connected subscriber.
// It never blocks and tolerates concurrent subscriber disconnects.
func (b *Bus) Publish(event entity.ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	dropped := 0
	for _, sub := range b.subs {
		dropped += sub.enqueue(event)
	}

	b.metrics.RecordBusEvent(string(event.Status))
	if dropped > 0 {
		b.metrics.RecordBusDropped(dropped)
	}
}

// enqueue adds the event to the subscriber queue, evicting the oldest
// queued events when full. Returns the number of evictions.
func (s *subscriber) enqueue(event entity.ProgressEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	dropped := 0

	for {
		select {
		case s.events <- event:
			return dropped
		default:
		}

		// Queue full: drop the oldest entry. The consumer may race us for
		// it, hence the nested default.
		select {
		case <-s.events:
			dropped++
		default:
		}
	}
}

// Subscription is a live attachment to the progress feed. Close is
// idempotent and releases the subscriber queue.
type Subscription struct {
	id  string
	sub *subscriber
	bus *Bus

	closeOnce sync.Once
}

// Events returns the channel of progress events. The channel is closed
// when the subscription is closed or the bus shuts down.
func (s *Subscription) Events() <-chan entity.ProgressEvent {
	return s.sub.events
}

// Close detaches the subscriber from the bus.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// Subscribe attaches a new subscriber. Only events published after this
// call are delivered; there is no replay.
func (b *Bus) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errs.ErrBusClosed
	}

	id := uuid.NewString()
	sub := &subscriber{
		events: make(chan entity.ProgressEvent, b.cfg.Bus.SubscriberQueueSize),
	}
	b.subs[id] = sub

	b.metrics.SetBusSubscribers(len(b.subs))

	return &Subscription{id: id, sub: sub, bus: b}, nil
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}

	delete(b.subs, id)
	sub.close()

	b.metrics.SetBusSubscribers(len(b.subs))
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.events)
}

func (b *Bus) close(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.close()
	}

	b.metrics.SetBusSubscribers(0)
	b.log.InfoContext(ctx, "event bus closed")
}
