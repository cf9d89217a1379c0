package bus

import (
	"log"
	"sync"

	"lastmile-route-service/internal/domain"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity.
const DefaultSubscriberBuffer = 64

// Bus fans reroute events out to in-process subscribers, one topic per
// route id. Publish never blocks: a subscriber whose buffer is full is
// dropped and its channel closed. Subscriptions are hot, they only see
// events published after Subscribe returns.
type Bus struct {
	mu     sync.Mutex
	topics map[int64]map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription is one listener on a route topic. Receive from C; a
// closed C means the subscriber was dropped or the bus shut down.
type Subscription struct {
	C       <-chan domain.RerouteEvent
	ch      chan domain.RerouteEvent
	routeID int64
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Bus{
		topics: make(map[int64]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe attaches a listener to the route's topic. On a closed bus
// the returned subscription is already closed.
func (b *Bus) Subscribe(routeID int64) *Subscription {
	s := &Subscription{ch: make(chan domain.RerouteEvent, b.buffer), routeID: routeID}
	s.C = s.ch

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	subs, ok := b.topics[routeID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[routeID] = subs
	}
	subs[s] = struct{}{}
	return s
}

// Unsubscribe detaches the subscription and closes its channel.
// Idempotent; safe to race with Publish.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(s)
}

// Publish delivers the event to every current subscriber of the route,
// in publish order. Slow subscribers are disconnected, not waited on.
func (b *Bus) Publish(routeID int64, ev domain.RerouteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for s := range b.topics[routeID] {
		select {
		case s.ch <- ev:
		default:
			log.Printf("bus: route_id=%d dropping slow subscriber", routeID)
			b.removeLocked(s)
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
// Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for s := range subs {
			close(s.ch)
		}
	}
	b.topics = nil
}

// removeLocked deletes the subscription and closes its channel exactly
// once. Caller holds b.mu.
func (b *Bus) removeLocked(s *Subscription) {
	subs, ok := b.topics[s.routeID]
	if !ok {
		return
	}
	if _, member := subs[s]; !member {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(b.topics, s.routeID)
	}
	close(s.ch)
}
