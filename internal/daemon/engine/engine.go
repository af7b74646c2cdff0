// Package engine ties the queue store, the synchronizer, the event
// reconciler, the command executor and the rollup aggregator together
// behind one consumer surface, and runs the background collectors.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/queued/command"
	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/collector"
	"github.com/grovetools/queued/internal/daemon/metrics"
	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/internal/daemon/rollup"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

// Options configures the engine. See options.Options.
type Options = options.Options

// Engine manages queue state and runs all collectors.
type Engine struct {
	store    *store.Store
	opts     *options.Live
	agg      *rollup.Aggregator
	sync     *collector.Synchronizer
	exec     *command.Executor
	logger   *logrus.Entry
	provider ami.Provider

	mu         sync.Mutex
	reconciler *collector.EventReconciler
	collectors []collector.Collector
}

// New creates a new Engine and subscribes it to the provider's queue events.
// p may be nil; every remote operation then reports not connected.
func New(st *store.Store, p ami.Provider, opts Options, rec metrics.Recorder, logger *logrus.Entry) *Engine {
	if rec == nil {
		rec = metrics.Nop{}
	}
	live := options.NewLive(opts)
	return &Engine{
		store:      st,
		opts:       live,
		agg:        rollup.New(st),
		sync:       collector.NewSynchronizer(p, st, live, rec, logger.WithField("part", "sync")),
		exec:       command.NewExecutor(p, st, live, rec, logger.WithField("part", "command")),
		reconciler: collector.NewEventReconciler(p, st, live, rec, logger.WithField("part", "events")),
		logger:     logger,
		provider:   p,
	}
}

// Register adds a collector to the engine.
func (e *Engine) Register(c collector.Collector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collectors = append(e.collectors, c)
}

// Start runs all collectors and blocks until context is canceled.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	collectors := append([]collector.Collector(nil), e.collectors...)
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			e.logger.WithField("collector", col.Name()).Info("Starting collector")
			if err := col.Run(ctx); err != nil {
				e.logger.WithField("collector", col.Name()).WithError(err).Error("Collector failed")
			}
		}(c)
	}

	wg.Wait()
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store { return e.store }

// Aggregator returns the engine's rollup aggregator.
func (e *Engine) Aggregator() *rollup.Aggregator { return e.agg }

// Synchronizer returns the engine's snapshot synchronizer.
func (e *Engine) Synchronizer() *collector.Synchronizer { return e.sync }

// Provider returns the provider the engine was built with.
func (e *Engine) Provider() ami.Provider { return e.provider }

// Queues returns copies of every stored queue in insertion order.
func (e *Engine) Queues() []*models.Queue { return e.store.Snapshot() }

// Queue returns a copy of the named queue.
func (e *Engine) Queue(name string) (*models.Queue, bool) { return e.store.Lookup(name) }

// Member returns a copy of iface's membership in queue.
func (e *Engine) Member(queue, iface string) (*models.QueueMember, error) {
	q, ok := e.store.Lookup(queue)
	if !ok {
		return nil, errors.QueueNotFound(queue)
	}
	m, _ := q.Member(iface)
	if m == nil {
		return nil, errors.MemberNotFound(queue, iface)
	}
	return m, nil
}

// Rollups returns the cross-queue rollups for the current store version.
func (e *Engine) Rollups() rollup.Rollups { return e.agg.Rollups() }

func (e *Engine) TotalCallers() int               { return e.agg.TotalCallers() }
func (e *Engine) TotalAvailable() int             { return e.agg.TotalAvailable() }
func (e *Engine) TotalPaused() int                { return e.agg.TotalPaused() }
func (e *Engine) LongestWait() rollup.WaitRecord  { return e.agg.LongestWait() }
func (e *Engine) OverallServiceLevel() float64    { return e.agg.OverallServiceLevel() }
func (e *Engine) Status() collector.Status        { return e.sync.Status() }
func (e *Engine) Summary() []*models.QueueSummary { return e.sync.Summary() }

// Refresh pulls every queue from the provider. Failures are reported
// through Status.
func (e *Engine) Refresh(ctx context.Context) {
	e.sync.Refresh(ctx)
}

// RefreshQueue pulls a single queue from the provider.
func (e *Engine) RefreshQueue(ctx context.Context, name string) {
	e.sync.RefreshQueue(ctx, name)
}

// GetSummary fetches the summary projection from the provider.
func (e *Engine) GetSummary(ctx context.Context) ([]*models.QueueSummary, error) {
	return e.sync.GetSummary(ctx)
}

// PauseMember pauses iface in queue.
func (e *Engine) PauseMember(ctx context.Context, queue, iface, reason string) error {
	return e.exec.Pause(ctx, queue, iface, reason)
}

// UnpauseMember resumes iface in queue.
func (e *Engine) UnpauseMember(ctx context.Context, queue, iface string) error {
	return e.exec.Unpause(ctx, queue, iface)
}

// AddMember adds iface to queue.
func (e *Engine) AddMember(ctx context.Context, queue, iface string, opts *ami.AddMemberOptions) error {
	return e.exec.AddMember(ctx, queue, iface, opts)
}

// RemoveMember removes iface from queue.
func (e *Engine) RemoveMember(ctx context.Context, queue, iface string) error {
	return e.exec.RemoveMember(ctx, queue, iface)
}

// SetPenalty changes the penalty of iface in queue.
func (e *Engine) SetPenalty(ctx context.Context, queue, iface string, penalty int) error {
	return e.exec.SetPenalty(ctx, queue, iface, penalty)
}

// PauseReasons returns the configured pause reasons, or the defaults.
func (e *Engine) PauseReasons() []string { return e.opts.Load().GetPauseReasons() }

// StatusLabel returns the display label for status.
func (e *Engine) StatusLabel(status models.MemberStatus) string {
	return e.opts.Load().GetStatusLabel(status)
}

// ApplyOptions replaces the filter, label and pause reason settings while
// keeping the callbacks the engine was built with. Stored queues are not
// re-filtered; the new filters apply from the next refresh.
func (e *Engine) ApplyOptions(o Options) {
	e.opts.Update(func(cur *options.Options) {
		cur.QueueFilter = o.QueueFilter
		cur.MemberFilter = o.MemberFilter
		cur.PauseReasons = o.PauseReasons
		cur.StatusLabels = o.StatusLabels
	})
	e.logger.Info("Engine options updated")
}

// Close removes the engine's event subscriptions. The store is kept.
func (e *Engine) Close() {
	e.mu.Lock()
	r := e.reconciler
	e.reconciler = nil
	e.mu.Unlock()

	if r != nil {
		r.Close()
	}
}

// Clear removes the event subscriptions and every stored queue.
func (e *Engine) Clear() {
	e.Close()
	e.store.Clear()
	e.logger.Info("Engine cleared")
}
