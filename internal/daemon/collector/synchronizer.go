package collector

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/metrics"
	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

// Status is the observable state of the refresh family of operations.
type Status = models.SyncStatus

// Synchronizer pulls full queue snapshots from the provider, filters them,
// and merges them into the store.
type Synchronizer struct {
	provider ami.Provider
	store    *store.Store
	opts     *options.Live
	recorder metrics.Recorder
	logger   *logrus.Entry

	mu          sync.Mutex
	inflight    int
	lastErr     string
	lastRefresh time.Time
	summary     []*models.QueueSummary
}

// NewSynchronizer creates a Synchronizer. A nil provider is allowed and
// behaves as a disconnected one.
func NewSynchronizer(p ami.Provider, st *store.Store, opts *options.Live, rec metrics.Recorder, logger *logrus.Entry) *Synchronizer {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Synchronizer{
		provider: p,
		store:    st,
		opts:     opts,
		recorder: rec,
		logger:   logger,
	}
}

// Refresh fetches every queue and merges the accepted ones into the store.
// It never returns an error: failures are recorded in Status so callers
// can invoke it unconditionally from a polling loop.
func (s *Synchronizer) Refresh(ctx context.Context) {
	s.refresh(ctx, "")
}

// RefreshQueue is Refresh scoped to a single queue.
func (s *Synchronizer) RefreshQueue(ctx context.Context, name string) {
	s.refresh(ctx, name)
}

func (s *Synchronizer) refresh(ctx context.Context, name string) {
	if !ami.Connected(s.provider) {
		s.mu.Lock()
		s.lastErr = errors.Message(errors.NotConnected())
		s.mu.Unlock()
		s.logger.WithField("queue", name).Debug("Skipping refresh, provider not connected")
		return
	}

	s.mu.Lock()
	s.inflight++
	s.lastErr = ""
	s.mu.Unlock()

	start := time.Now()
	queues, err := s.provider.GetQueueStatus(ctx, name)
	if err != nil {
		s.mu.Lock()
		s.inflight--
		s.lastErr = err.Error()
		s.mu.Unlock()

		s.recorder.RefreshDone(err)
		s.logger.WithError(err).WithField("queue", name).Warn("Queue refresh failed")
		return
	}

	opts := s.opts.Load()
	accepted := s.accept(opts, queues)
	stored := s.store.Merge(store.SourceRefresh, accepted)

	s.mu.Lock()
	s.inflight--
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	s.recorder.RefreshDone(nil)
	s.logger.WithFields(logrus.Fields{
		"queue":    name,
		"returned": len(queues),
		"stored":   len(stored),
		"duration": time.Since(start),
	}).Debug("Queue refresh applied")

	if opts.OnQueueUpdate != nil {
		for _, q := range stored {
			if snap, ok := s.store.Lookup(q.Name); ok {
				opts.OnQueueUpdate(snap)
			}
		}
	}
}

// accept applies the queue and member filters and fills in the fields the
// provider leaves to us.
func (s *Synchronizer) accept(opts *options.Options, queues []*models.Queue) []*models.Queue {
	now := time.Now()
	accepted := make([]*models.Queue, 0, len(queues))
	for _, q := range queues {
		if q == nil || q.Name == "" || !opts.AcceptQueue(q) {
			continue
		}

		members := make([]*models.QueueMember, 0, len(q.Members))
		for _, m := range q.Members {
			if m == nil || !opts.AcceptMember(m) {
				continue
			}
			m.Queue = q.Name
			if m.StatusLabel == "" {
				m.StatusLabel = opts.GetStatusLabel(m.Status)
			}
			if !m.Paused {
				m.PausedReason = ""
			}
			members = append(members, m)
		}
		q.Members = members

		for _, e := range q.Entries {
			if e != nil {
				e.Queue = q.Name
			}
		}
		if q.LastUpdated.IsZero() {
			q.LastUpdated = now
		}
		accepted = append(accepted, q)
	}
	return accepted
}

// GetSummary fetches the summary projection. Unlike Refresh it fails hard
// when the provider is missing. The result is cached but never merged into
// the store.
func (s *Synchronizer) GetSummary(ctx context.Context) ([]*models.QueueSummary, error) {
	if !ami.Connected(s.provider) {
		return nil, errors.NotConnected()
	}

	summary, err := s.provider.GetQueueSummary(ctx, "")
	if err != nil {
		s.logger.WithError(err).Warn("Queue summary failed")
		return nil, err
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	return summary, nil
}

// Summary returns the last fetched summary projection.
func (s *Synchronizer) Summary() []*models.QueueSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Status returns the loading flag, last error and last successful refresh time.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Loading:     s.inflight > 0,
		Error:       s.lastErr,
		LastRefresh: s.lastRefresh,
	}
}
