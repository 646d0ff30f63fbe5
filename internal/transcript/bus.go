// Package transcript implements the per-call publish/subscribe channel used
// to multicast live transcript fragments to connected observers.
//
// Semantics are live-tail, not replay: a subscriber registered after an event
// misses it. Delivery to one subscriber is best-effort and isolated; a broken
// subscriber never affects other subscribers or the publisher.
package transcript

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus multiplexes transcript events by call id.
//
// Locking: the topic map is guarded by mu; each topic carries its own mutex,
// so publish/subscribe/complete are mutually exclusive per call id but
// independent across ids.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*topic

	nextID atomic.Uint64
	log    *slog.Logger
}

type topic struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
}

// Subscription is a cancellable handle to a registered listener.
// Cancel is safe to call more than once; calls after the first are no-ops.
type Subscription struct {
	id      uint64
	callID  string
	bus     *Bus
	onEvent func(payload any)
	onDone  func()
	once    sync.Once
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{topics: make(map[string]*topic), log: log}
}

// Subscribe registers a listener for a call id. onEvent receives every
// payload published after this point, in publish order; onDone fires exactly
// once when the call's stream completes.
func (b *Bus) Subscribe(callID string, onEvent func(payload any), onDone func()) *Subscription {
	sub := &Subscription{
		id:      b.nextID.Add(1),
		callID:  callID,
		bus:     b,
		onEvent: onEvent,
		onDone:  onDone,
	}

	b.mu.Lock()
	t, ok := b.topics[callID]
	if !ok {
		t = &topic{subs: make(map[uint64]*Subscription)}
		b.topics[callID] = t
	}
	b.mu.Unlock()

	t.mu.Lock()
	t.subs[sub.id] = sub
	t.mu.Unlock()
	return sub
}

// Publish delivers payload to every current subscriber for callID, in publish
// order. Publishing to a call with no subscribers is a cheap no-op. A
// subscriber that panics is logged and skipped, never propagated.
func (b *Bus) Publish(callID string, payload any) {
	b.mu.RLock()
	t := b.topics[callID]
	b.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		b.deliver(callID, sub.onEvent, payload)
	}
}

// Complete invokes every current subscriber's done callback exactly once and
// clears the topic. Later publishes for the same id are accepted but produce
// no delivery until a fresh subscription exists.
func (b *Bus) Complete(callID string) {
	b.mu.Lock()
	t := b.topics[callID]
	delete(b.topics, callID)
	b.mu.Unlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	subs := make([]*Subscription, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	t.subs = make(map[uint64]*Subscription)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.markDone()
		if sub.onDone != nil {
			b.deliver(callID, func(any) { sub.onDone() }, nil)
		}
	}
}

func (b *Bus) deliver(callID string, fn func(any), payload any) {
	if fn == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			b.log.Warn("transcript delivery failed", "call_id", callID, "panic", p)
		}
	}()
	fn(payload)
}

// Cancel removes the subscription. It takes effect synchronously: no event is
// delivered after Cancel returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		t := b.topics[s.callID]
		b.mu.Unlock()
		if t == nil {
			return
		}
		t.mu.Lock()
		delete(t.subs, s.id)
		empty := len(t.subs) == 0
		t.mu.Unlock()

		if empty {
			b.mu.Lock()
			// Re-check under the write lock; a new subscriber may have
			// re-created interest in the meantime.
			if cur := b.topics[s.callID]; cur == t {
				t.mu.Lock()
				if len(t.subs) == 0 {
					delete(b.topics, s.callID)
				}
				t.mu.Unlock()
			}
			b.mu.Unlock()
		}
	})
}

// markDone consumes the once so a later Cancel by the observer is a no-op
// after completion already detached the subscription.
func (s *Subscription) markDone() {
	s.once.Do(func() {})
}
