package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
)

// Call records a single invocation of a Provider method.
type Call struct {
	Method string
	Args   []any
}

// Provider is a mock implementation of ami.Provider for testing.
// Unset funcs succeed with zero values. Connected defaults to true.
type Provider struct {
	ami.Bus

	Disconnected bool

	GetQueueStatusFunc  func(ctx context.Context, name string) ([]*models.Queue, error)
	GetQueueSummaryFunc func(ctx context.Context, name string) ([]*models.QueueSummary, error)
	QueuePauseFunc      func(ctx context.Context, queue, iface string, paused bool, reason string) error
	QueueAddFunc        func(ctx context.Context, queue, iface string, opts *ami.AddMemberOptions) error
	QueueRemoveFunc     func(ctx context.Context, queue, iface string) error
	QueuePenaltyFunc    func(ctx context.Context, queue, iface string, penalty int) error

	mu    sync.Mutex
	calls []Call
}

// IsConnected returns the inverse of Disconnected.
func (m *Provider) IsConnected() bool {
	return !m.Disconnected
}

// GetQueueStatus calls the mock function
func (m *Provider) GetQueueStatus(ctx context.Context, name string) ([]*models.Queue, error) {
	m.record("GetQueueStatus", name)
	if m.GetQueueStatusFunc != nil {
		return m.GetQueueStatusFunc(ctx, name)
	}
	return nil, nil
}

// GetQueueSummary calls the mock function
func (m *Provider) GetQueueSummary(ctx context.Context, name string) ([]*models.QueueSummary, error) {
	m.record("GetQueueSummary", name)
	if m.GetQueueSummaryFunc != nil {
		return m.GetQueueSummaryFunc(ctx, name)
	}
	return nil, nil
}

// QueuePause calls the mock function
func (m *Provider) QueuePause(ctx context.Context, queue, iface string, paused bool, reason string) error {
	m.record("QueuePause", queue, iface, paused, reason)
	if m.QueuePauseFunc != nil {
		return m.QueuePauseFunc(ctx, queue, iface, paused, reason)
	}
	return nil
}

// QueueAdd calls the mock function
func (m *Provider) QueueAdd(ctx context.Context, queue, iface string, opts *ami.AddMemberOptions) error {
	m.record("QueueAdd", queue, iface, opts)
	if m.QueueAddFunc != nil {
		return m.QueueAddFunc(ctx, queue, iface, opts)
	}
	return nil
}

// QueueRemove calls the mock function
func (m *Provider) QueueRemove(ctx context.Context, queue, iface string) error {
	m.record("QueueRemove", queue, iface)
	if m.QueueRemoveFunc != nil {
		return m.QueueRemoveFunc(ctx, queue, iface)
	}
	return nil
}

// QueuePenalty calls the mock function
func (m *Provider) QueuePenalty(ctx context.Context, queue, iface string, penalty int) error {
	m.record("QueuePenalty", queue, iface, penalty)
	if m.QueuePenaltyFunc != nil {
		return m.QueuePenaltyFunc(ctx, queue, iface, penalty)
	}
	return nil
}

// Emit publishes payload on topic to every registered handler.
func (m *Provider) Emit(topic ami.Topic, payload any) {
	m.Publish(ami.Event{Topic: topic, Received: time.Now(), Payload: payload})
}

// Calls returns the recorded invocations of method, in order.
func (m *Provider) Calls(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *Provider) record(method string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Args: args})
}

// Ensure Provider implements ami.Provider.
var _ ami.Provider = (*Provider)(nil)
