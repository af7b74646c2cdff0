package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RefreshCollector polls the provider for full queue snapshots.
type RefreshCollector struct {
	sync     *Synchronizer
	interval time.Duration
	trigger  <-chan struct{}
	logger   *logrus.Entry
}

// NewRefreshCollector creates a new RefreshCollector with the specified interval.
// If interval is 0, defaults to 10 seconds.
func NewRefreshCollector(s *Synchronizer, interval time.Duration, logger *logrus.Entry) *RefreshCollector {
	if interval == 0 {
		interval = 10 * time.Second
	}
	return &RefreshCollector{sync: s, interval: interval, logger: logger}
}

// WithTrigger makes the collector refresh out of band whenever ch fires,
// e.g. when the provider (re)connects.
func (c *RefreshCollector) WithTrigger(ch <-chan struct{}) *RefreshCollector {
	c.trigger = ch
	return c
}

// Name returns the collector's name.
func (c *RefreshCollector) Name() string { return "refresh" }

// Run refreshes once immediately, then on every tick and every trigger
// until ctx is done.
func (c *RefreshCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	poll := func() {
		start := time.Now()
		c.sync.Refresh(ctx)
		if d := time.Since(start); d > c.interval/2 {
			c.logger.WithField("duration", d).Warn("Slow queue refresh detected")
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		case <-c.trigger:
			c.logger.Debug("Refresh triggered")
			poll()
			ticker.Reset(c.interval)
		}
	}
}

// SummaryCollector keeps the cached summary projection warm.
type SummaryCollector struct {
	sync     *Synchronizer
	interval time.Duration
	logger   *logrus.Entry
}

// NewSummaryCollector creates a new SummaryCollector with the specified interval.
// If interval is 0, defaults to 30 seconds.
func NewSummaryCollector(s *Synchronizer, interval time.Duration, logger *logrus.Entry) *SummaryCollector {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &SummaryCollector{sync: s, interval: interval, logger: logger}
}

// Name returns the collector's name.
func (c *SummaryCollector) Name() string { return "summary" }

// Run fetches the summary on every tick until ctx is done. Failures are
// logged and retried on the next tick.
func (c *SummaryCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.sync.GetSummary(ctx); err != nil {
				c.logger.WithError(err).Debug("Summary poll failed")
			}
		}
	}
}
