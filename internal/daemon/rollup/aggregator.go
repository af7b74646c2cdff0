// Package rollup derives cross-queue metrics from the queue store.
package rollup

import (
	"sync"

	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/models"
)

// WaitRecord identifies the longest waiting caller.
type WaitRecord = models.WaitRecord

// Rollups holds every derived value for one store version.
type Rollups = models.Rollups

// Aggregator caches Rollups per store version. It holds no state of its
// own beyond the cache, so results always match the latest completed mutation.
type Aggregator struct {
	store *store.Store

	mu     sync.Mutex
	cached *Rollups
}

// New creates an Aggregator reading from st.
func New(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Rollups returns the rollups for the current store version, recomputing
// only when the version moved.
func (a *Aggregator) Rollups() Rollups {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out Rollups
	a.store.View(func(version uint64, queues []*models.Queue) {
		if a.cached != nil && a.cached.Version == version {
			out = *a.cached
			return
		}
		out = Compute(version, queues)
		a.cached = &out
	})
	return out
}

func (a *Aggregator) TotalCallers() int            { return a.Rollups().TotalCallers }
func (a *Aggregator) TotalAvailable() int          { return a.Rollups().TotalAvailable }
func (a *Aggregator) TotalPaused() int             { return a.Rollups().TotalPaused }
func (a *Aggregator) LongestWait() WaitRecord      { return a.Rollups().LongestWait }
func (a *Aggregator) OverallServiceLevel() float64 { return a.Rollups().OverallServiceLevel }

// Compute derives the rollups from a set of queues.
func Compute(version uint64, queues []*models.Queue) Rollups {
	r := Rollups{Version: version}
	longest := -1
	var slSum float64

	for _, q := range queues {
		r.TotalCallers += q.Calls
		slSum += q.ServiceLevelPerf

		for _, m := range q.Members {
			if m.Available() {
				r.TotalAvailable++
			}
			if m.Paused {
				r.TotalPaused++
			}
		}

		for _, e := range q.Entries {
			if e.Wait > longest {
				longest = e.Wait
				r.LongestWait = WaitRecord{Queue: q.Name, Wait: e.Wait}
			}
		}
	}

	if len(queues) > 0 {
		r.OverallServiceLevel = slSum / float64(len(queues))
	}
	return r
}
