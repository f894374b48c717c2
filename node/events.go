package node

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eth2030/presale/core/types"
)

// EventType is the outcome class of a published call.
type EventType string

const (
	EventCallCommitted EventType = "call.committed"
	EventCallReverted  EventType = "call.reverted"
)

// Event is one persisted receipt as seen by subscribers.
type Event struct {
	Type      EventType
	Receipt   *types.Receipt
	Timestamp time.Time
}

// Subscription is a buffered channel of events of selected types.
type Subscription struct {
	feed      *Feed
	ch        chan Event
	committed bool
	reverted  bool
	once      sync.Once
}

func (s *Subscription) wants(t EventType) bool {
	return (t == EventCallCommitted && s.committed) || (t == EventCallReverted && s.reverted)
}

// Chan is closed by Unsubscribe or Feed.Close.
func (s *Subscription) Chan() <-chan Event { return s.ch }

// Unsubscribe may be called more than once.
func (s *Subscription) Unsubscribe() {
	if s.feed != nil {
		s.feed.remove(s)
	}
}

func (s *Subscription) close() { s.once.Do(func() { close(s.ch) }) }

// Feed fans receipts out to subscribers without ever blocking the
// executor. A delivery to a full buffer is dropped and counted.
type Feed struct {
	buffer  int
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	dropped atomic.Uint64
}

func NewFeed(buffer int) *Feed {
	return &Feed{buffer: max(buffer, 0), subs: make(map[*Subscription]struct{})}
}

// Subscribe selects events by type; no types means all of them. On a
// closed feed the returned channel is already closed.
func (f *Feed) Subscribe(types ...EventType) *Subscription {
	sub := &Subscription{ch: make(chan Event, f.buffer)}
	if len(types) == 0 {
		sub.committed, sub.reverted = true, true
	}
	for _, t := range types {
		switch t {
		case EventCallCommitted:
			sub.committed = true
		case EventCallReverted:
			sub.reverted = true
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		sub.close()
		return sub
	}
	sub.feed = f
	f.subs[sub] = struct{}{}
	return sub
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	_, live := f.subs[sub]
	delete(f.subs, sub)
	f.mu.Unlock()
	if live {
		sub.close()
	}
}

// Publish hands r to every interested subscriber that has room.
func (f *Feed) Publish(r *types.Receipt) {
	ev := Event{Type: EventCallReverted, Receipt: r, Timestamp: time.Now()}
	if r.Succeeded() {
		ev.Type = EventCallCommitted
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped counts deliveries lost to full buffers.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

func (f *Feed) SubscriberCount(t EventType) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for sub := range f.subs {
		if sub.wants(t) {
			n++
		}
	}
	return n
}

// Close ends every subscription. Publishing afterwards is a no-op.
func (f *Feed) Close() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[*Subscription]struct{})
	f.closed = true
	f.mu.Unlock()
	for sub := range subs {
		sub.close()
	}
}
