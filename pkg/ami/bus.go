package ami

import "sync"

// SubscriptionID identifies a handler registered on a Bus.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is an observer list keyed by topic. Providers embed it to implement
// On and Off. The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	next     SubscriptionID
	handlers map[Topic][]subscription
}

// On registers h for topic.
func (b *Bus) On(topic Topic, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[Topic][]subscription)
	}
	b.next++
	b.handlers[topic] = append(b.handlers[topic], subscription{id: b.next, handler: h})
	return b.next
}

// Off removes the handler with the given id from topic.
func (b *Bus) Off(topic Topic, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to the handlers registered for its topic, in
// registration order, on the caller's goroutine.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.handlers[ev.Topic]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ev)
	}
}

// Count returns the number of handlers registered for topic.
func (b *Bus) Count(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
