// Package eventbus implements the in-process, typed pub/sub primitive
// described in spec.md §4.2: per-subscriber FIFO delivery, no loss for live
// subscribers, no replay for late subscribers, and wait-for-space
// backpressure.
//
// Ordering is obtained by serializing only the "assign publication order"
// step behind a single mutex: Publish takes a snapshot of matching
// subscribers and, for each, a ticket that chains it behind whatever
// delivery to that same subscriber was most recently enqueued. The actual
// (possibly blocking) sends happen concurrently, outside the mutex, one
// goroutine per matched subscriber. A subscriber's chain of tickets
// guarantees it observes events in exactly the order Publish calls acquired
// the lock, while a stalled subscriber's full buffer only ever blocks the
// goroutines waiting in its own chain — unrelated subscribers, and
// unrelated Publish calls, proceed independently.
package eventbus

import (
	"context"
	"sync"

	"github.com/coordframe/agentcoord/internal/telemetry"
)

// DefaultCapacity is the channel capacity used when SubscribeOptions.Capacity
// is zero on a Bus built by New (NewWithCapacity can override it per Bus).
// It is large enough to behave as "conceptually unbounded" for the
// kernel's expected fan-out (spec.md §4.2 bounded-mode requirement).
const DefaultCapacity = 4096

type (
	// Bus is a typed, in-process event bus.
	Bus struct {
		metrics telemetry.Metrics

		// defaultCapacity is used by Subscribe whenever a caller's
		// SubscribeOptions.Capacity is zero.
		defaultCapacity int

		mu     sync.Mutex
		nextID uint64
		subs   map[uint64]*subscriber
	}

	// SubscribeOptions configures a subscription.
	SubscribeOptions struct {
		// Capacity bounds the subscriber's buffer. Zero uses the Bus's
		// default capacity (DefaultCapacity unless set by NewWithCapacity).
		Capacity int
	}

	subscriber struct {
		id     uint64
		filter Filter
		ch     chan Event
		closed bool

		// lastDone is the completion channel of the most recently enqueued
		// delivery for this subscriber, or nil if none is outstanding. Every
		// new delivery chains behind it, which is what keeps concurrent
		// Publish calls from reordering events at this subscriber.
		lastDone chan struct{}
	}

	// Subscription is a lazy, potentially infinite stream of matching events
	// in publication order.
	Subscription struct {
		bus *Bus
		sub *subscriber
	}

	// delivery is one subscriber's obligation to receive a single event, in
	// the order Publish assigned it.
	delivery struct {
		sub  *subscriber
		wait chan struct{} // closed once the prior delivery to sub completes; nil if none
		done chan struct{} // closed once this delivery completes
	}
)

// New creates an empty Bus with the package default subscriber capacity.
// metrics may be nil (telemetry.NewNoopMetrics() is used in that case).
func New(metrics telemetry.Metrics) *Bus {
	return NewWithCapacity(metrics, 0)
}

// NewWithCapacity is like New but overrides the channel capacity every
// Subscribe call on this Bus falls back to when its own
// SubscribeOptions.Capacity is zero (coordinator.Config.EventBusCapacity
// wires this). capacity <= 0 selects DefaultCapacity, same as New.
func NewWithCapacity(metrics telemetry.Metrics, capacity int) *Bus {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		metrics:         metrics,
		defaultCapacity: capacity,
		subs:            make(map[uint64]*subscriber),
	}
}

// Subscribe registers filter and returns a Subscription that comes into
// existence synchronously with this call: any Publish that starts after
// Subscribe returns is guaranteed visible to the returned Subscription
// (spec.md §4.2 invariant 3 and the "subscribe first" rule in §4.6).
func (b *Bus) Subscribe(filter Filter, opts SubscribeOptions) *Subscription {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = b.defaultCapacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscriber{
		id:     b.nextID,
		filter: filter,
		ch:     make(chan Event, capacity),
	}
	b.subs[sub.id] = sub
	return &Subscription{bus: b, sub: sub}
}

// Publish delivers event to every currently live subscriber whose filter
// matches. It blocks the caller while any matching subscriber's buffer is
// full (backpressure), until space frees up or ctx is done. Publish
// completes only after every matching subscriber has accepted the event (or
// ctx ended). A subscriber whose buffer is full blocks only the deliveries
// queued behind it; it never blocks delivery to other subscribers, nor
// unrelated Publish calls.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	var deliveries []delivery
	for _, sub := range b.subs {
		if sub.closed || !sub.filter(event) {
			continue
		}
		d := delivery{sub: sub, wait: sub.lastDone, done: make(chan struct{})}
		sub.lastDone = d.done
		deliveries = append(deliveries, d)
	}
	b.mu.Unlock()

	if len(deliveries) == 0 {
		return nil
	}

	errs := make(chan error, len(deliveries))
	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		go func(d delivery) {
			defer wg.Done()
			defer close(d.done)
			if d.wait != nil {
				select {
				case <-d.wait:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			select {
			case d.sub.ch <- event:
			case <-ctx.Done():
				errs <- ctx.Err()
			}
		}(d)
	}
	wg.Wait()
	close(errs)

	b.metrics.IncCounter("eventbus.published", float64(len(deliveries)), "family", string(event.Family()))
	for err := range errs {
		b.metrics.IncCounter("eventbus.dropped", 1, "family", string(event.Family()))
		return err
	}
	return nil
}

// Next blocks until an event matching the subscription's filter is
// available, ctx is done, or the subscription is cancelled. The returned
// bool is false when ctx is done or the subscription was cancelled.
func (s *Subscription) Next(ctx context.Context) (Event, bool) {
	select {
	case e, ok := <-s.sub.ch:
		return e, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Cancel terminates the subscription. Events queued but not yet consumed
// are discarded. A subsequent Publish will not block on this subscriber.
// Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	if s.sub.closed {
		s.bus.mu.Unlock()
		return
	}
	s.sub.closed = true
	delete(s.bus.subs, s.sub.id)
	wait := s.sub.lastDone
	s.bus.mu.Unlock()

	// No new delivery can have been chained onto this subscriber since
	// closed was set above (Publish checks closed under the same lock), so
	// waiting for the last outstanding one to finish makes it safe to close
	// the channel without racing an in-flight send.
	if wait != nil {
		<-wait
	}
	for {
		select {
		case <-s.sub.ch:
			continue
		default:
		}
		break
	}
	close(s.sub.ch)
}
