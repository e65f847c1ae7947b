package events

import (
	"sync"
	"time"
)

type Kind string

const (
	KindPlanChanged          Kind = "plan_changed"
	KindMealLogged           Kind = "meal_logged"
	KindRemindersRescheduled Kind = "reminders_rescheduled"
)

// Event is broadcast after structural mutations so dependent views can
// refresh without polling.
type Event struct {
	Kind    Kind      `json:"kind"`
	Owner   string    `json:"-"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Bus is an in-process fan-out broadcaster. Publish never blocks: a
// subscriber that cannot keep up has its channel dropped, the same way a
// stale SSE client would be.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a buffered channel the bus will deliver to. The caller
// must Unsubscribe when done; the bus closes the channel at that point.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber is blocked; drop it rather than stall publishers.
			delete(b.subs, ch)
			close(ch)
		}
	}
}
