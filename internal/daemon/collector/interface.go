// Package collector keeps the queue store in step with the telephony switch:
// snapshot refreshes (Synchronizer), push events (EventReconciler), and the
// background workers that drive them.
package collector

import "context"

// Collector is a background worker run by the engine.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Run blocks until ctx is cancelled.
	Run(ctx context.Context) error
}

// Func adapts a run function into a Collector.
func Func(name string, run func(ctx context.Context) error) Collector {
	return &funcCollector{name: name, run: run}
}

type funcCollector struct {
	name string
	run  func(ctx context.Context) error
}

func (c *funcCollector) Name() string                  { return c.name }
func (c *funcCollector) Run(ctx context.Context) error { return c.run(ctx) }
