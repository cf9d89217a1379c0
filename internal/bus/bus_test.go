package bus

import (
	"testing"
	"time"

	"lastmile-route-service/internal/domain"
)

func event(routeID int64, stopID int64) domain.RerouteEvent {
	return domain.RerouteEvent{
		RouteID: routeID,
		Stops:   []domain.RerouteStop{{StopID: stopID, PlannedArrival: "08:30"}},
	}
}

func TestBusDeliversToRouteTopic(t *testing.T) {
	b := New(4)
	defer b.Close()

	sub := b.Subscribe(1)
	other := b.Subscribe(2)

	b.Publish(1, event(1, 10))

	select {
	case ev := <-sub.C:
		if ev.RouteID != 1 || ev.Stops[0].StopID != 10 {
			t.Fatalf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case ev := <-other.C:
		t.Fatalf("route 2 subscriber received route 1 event: %+v", ev)
	default:
	}
}

func TestBusPreservesPublishOrder(t *testing.T) {
	b := New(16)
	defer b.Close()

	sub := b.Subscribe(1)
	for i := int64(0); i < 10; i++ {
		b.Publish(1, event(1, i))
	}

	for i := int64(0); i < 10; i++ {
		ev := <-sub.C
		if ev.Stops[0].StopID != i {
			t.Fatalf("event %d carries stop %d, want %d", i, ev.Stops[0].StopID, i)
		}
	}
}

func TestBusSubscriptionsAreHot(t *testing.T) {
	b := New(4)
	defer b.Close()

	b.Publish(1, event(1, 10))
	sub := b.Subscribe(1)

	select {
	case ev := <-sub.C:
		t.Fatalf("hot subscription replayed an old event: %+v", ev)
	default:
	}
}

func TestBusDropsSlowSubscriber(t *testing.T) {
	b := New(2)
	defer b.Close()

	slow := b.Subscribe(1)
	fast := b.Subscribe(1)

	// Fill slow's buffer without draining, then publish once more.
	b.Publish(1, event(1, 0))
	b.Publish(1, event(1, 1))
	<-fast.C
	<-fast.C
	b.Publish(1, event(1, 2))

	// Fast subscriber is unaffected.
	if ev := <-fast.C; ev.Stops[0].StopID != 2 {
		t.Fatalf("fast subscriber got %+v", ev)
	}

	// Slow subscriber keeps its buffered events, then sees the channel
	// closed instead of the dropped event.
	<-slow.C
	<-slow.C
	if _, ok := <-slow.C; ok {
		t.Fatal("dropped subscriber received an event past its buffer")
	}
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	b := New(4)
	defer b.Close()

	sub := b.Subscribe(1)
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Fatal("unsubscribed channel still open")
	}

	// Publishing to the emptied topic is a no-op.
	b.Publish(1, event(1, 10))
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	b := New(4)
	sub := b.Subscribe(1)

	b.Close()
	b.Close()

	if _, ok := <-sub.C; ok {
		t.Fatal("subscriber channel open after bus close")
	}

	// A subscription taken after close is born closed.
	late := b.Subscribe(1)
	if _, ok := <-late.C; ok {
		t.Fatal("post-close subscription is open")
	}
	b.Publish(1, event(1, 10))
}
