package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/pkg/ami/mocks"
	"github.com/grovetools/queued/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCollectorPollsOnTrigger(t *testing.T) {
	var n atomic.Int32
	p := &mocks.Provider{
		GetQueueStatusFunc: func(ctx context.Context, name string) ([]*models.Queue, error) {
			if n.Add(1) == 1 {
				return nil, errors.New("dial tcp: connection refused")
			}
			return []*models.Queue{salesQueue()}, nil
		},
	}
	s, st, _ := newSync(p, options.Options{})

	trigger := make(chan struct{}, 1)
	c := NewRefreshCollector(s, time.Hour, testLogger()).WithTrigger(trigger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Status().Error != "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, st.Size())

	trigger <- struct{}{}
	require.Eventually(t, func() bool { return st.Size() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.Status().Error)
	assert.Len(t, p.Calls("GetQueueStatus"), 2)

	cancel()
	assert.NoError(t, <-done)
}

func TestRefreshCollectorTicks(t *testing.T) {
	p := &mocks.Provider{}
	s, _, _ := newSync(p, options.Options{})
	c := NewRefreshCollector(s, 10*time.Millisecond, testLogger())
	assert.Equal(t, "refresh", c.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(p.Calls("GetQueueStatus")) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
