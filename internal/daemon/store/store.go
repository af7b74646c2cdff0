package store

import (
	"sync"

	"github.com/grovetools/queued/pkg/models"
)

// Store is the in-memory queue store and the single source of truth for
// queue state. Queues are kept in insertion order. Every completed mutation
// bumps the version and is broadcast to subscribers.
type Store struct {
	mu          sync.RWMutex
	queues      map[string]*models.Queue
	order       []string
	version     uint64
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		queues:      make(map[string]*models.Queue),
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns the live queue stored under name. The pointer stays valid
// across refreshes; callers must not mutate it outside Update.
func (s *Store) Get(name string) (*models.Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	return q, ok
}

// Set stores q under name. An existing queue is overwritten field by field
// so references to it remain valid.
func (s *Store) Set(name string, q *models.Queue) *models.Queue {
	s.mu.Lock()
	stored := s.setLocked(name, q)
	u := s.bumpLocked(Update{Type: UpdateQueues, Source: SourceRefresh, Queues: []string{name}})
	s.mu.Unlock()

	s.broadcast(u)
	return stored
}

// Merge stores a batch of queues in one step and returns the stored
// instances in the same order.
func (s *Store) Merge(source string, queues []*models.Queue) []*models.Queue {
	if len(queues) == 0 {
		return nil
	}

	s.mu.Lock()
	stored := make([]*models.Queue, 0, len(queues))
	names := make([]string, 0, len(queues))
	for _, q := range queues {
		stored = append(stored, s.setLocked(q.Name, q))
		names = append(names, q.Name)
	}
	u := s.bumpLocked(Update{Type: UpdateQueues, Source: source, Queues: names})
	s.mu.Unlock()

	s.broadcast(u)
	return stored
}

// Update runs fn against the queue stored under name while holding the
// write lock. fn returns whether it changed anything; only then is the
// version bumped and the change broadcast. Update reports whether the
// queue existed and fn changed it.
func (s *Store) Update(name, source string, typ UpdateType, fn func(q *models.Queue) bool) bool {
	s.mu.Lock()
	q, ok := s.queues[name]
	if !ok || !fn(q) {
		s.mu.Unlock()
		return false
	}
	u := s.bumpLocked(Update{Type: typ, Source: source, Queues: []string{name}})
	s.mu.Unlock()

	s.broadcast(u)
	return true
}

// Delete removes the queue stored under name.
func (s *Store) Delete(name string) bool {
	s.mu.Lock()
	if _, ok := s.queues[name]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.queues, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	u := s.bumpLocked(Update{Type: UpdateRemoved, Source: SourceClear, Queues: []string{name}})
	s.mu.Unlock()

	s.broadcast(u)
	return true
}

// Clear removes every queue.
func (s *Store) Clear() {
	s.mu.Lock()
	names := s.order
	s.queues = make(map[string]*models.Queue)
	s.order = nil
	u := s.bumpLocked(Update{Type: UpdateRemoved, Source: SourceClear, Queues: names})
	s.mu.Unlock()

	s.broadcast(u)
}

// Snapshot returns deep copies of all queues in insertion order.
func (s *Store) Snapshot() []*models.Queue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Queue, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.queues[name].Clone())
	}
	return result
}

// Lookup returns a deep copy of the queue stored under name.
func (s *Store) Lookup(name string) (*models.Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	if !ok {
		return nil, false
	}
	return q.Clone(), true
}

// View calls fn with the live queues in insertion order under the read
// lock, together with the current version. fn must not retain or mutate them.
func (s *Store) View(fn func(version uint64, queues []*models.Queue)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queues := make([]*models.Queue, 0, len(s.order))
	for _, name := range s.order {
		queues = append(queues, s.queues[name])
	}
	fn(s.version, queues)
}

// Names returns the stored queue names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Size returns the number of stored queues.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queues)
}

// Version returns the number of completed mutations.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastConfigReload sends a config reload notification to all subscribers.
func (s *Store) BroadcastConfigReload(file string) {
	s.mu.RLock()
	u := Update{
		Type:    UpdateConfigReload,
		Source:  SourceConfig,
		Version: s.version,
		Payload: file,
	}
	s.mu.RUnlock()
	s.broadcast(u)
}

func (s *Store) setLocked(name string, q *models.Queue) *models.Queue {
	if existing, ok := s.queues[name]; ok {
		existing.Overwrite(q)
		return existing
	}
	s.queues[name] = q
	s.order = append(s.order, name)
	return q
}

func (s *Store) bumpLocked(u Update) Update {
	s.version++
	u.Version = s.version
	return u
}

func (s *Store) broadcast(u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the engine
		}
	}
}
