package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Publish(Event{Kind: KindPlanChanged, Owner: "userA"})

	select {
	case evt := <-ch:
		if evt.Kind != KindPlanChanged || evt.Owner != "userA" {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.At.IsZero() {
			t.Fatal("expected publish timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Kind: KindMealLogged})
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()

	// Fill the subscriber's buffer, then overflow it. The overflowing
	// publish drops the subscriber and closes its channel, so draining
	// terminates.
	for i := 0; i < 20; i++ {
		bus.Publish(Event{Kind: KindMealLogged})
	}
	received := 0
	for range slow {
		received++
	}
	if received > 16 {
		t.Fatalf("received more events than the buffer holds: %d", received)
	}

	// A fresh subscriber is unaffected.
	fresh := bus.Subscribe()
	defer bus.Unsubscribe(fresh)
	bus.Publish(Event{Kind: KindPlanChanged})
	select {
	case evt := <-fresh:
		if evt.Kind != KindPlanChanged {
			t.Fatalf("unexpected event kind %s", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("fresh subscriber did not receive")
	}
}
