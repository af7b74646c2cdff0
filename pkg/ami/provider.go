// Package ami defines the contract between the queue engine and the telephony
// switch it mirrors: status queries, member control actions, and the push
// event topics that carry incremental queue changes.
package ami

import (
	"context"

	"github.com/grovetools/queued/pkg/models"
)

// Provider is the queue status collaborator consumed by the engine.
// Implementations must be safe for concurrent use.
type Provider interface {
	// IsConnected reports whether requests can currently be sent to the switch.
	IsConnected() bool

	// GetQueueStatus returns full queue snapshots. An empty name requests all queues.
	GetQueueStatus(ctx context.Context, name string) ([]*models.Queue, error)

	// GetQueueSummary returns the summary projection. An empty name requests all queues.
	GetQueueSummary(ctx context.Context, name string) ([]*models.QueueSummary, error)

	QueuePause(ctx context.Context, queue, iface string, paused bool, reason string) error
	QueueAdd(ctx context.Context, queue, iface string, opts *AddMemberOptions) error
	QueueRemove(ctx context.Context, queue, iface string) error
	QueuePenalty(ctx context.Context, queue, iface string, penalty int) error

	// On registers h for topic and returns an id for Off.
	On(topic Topic, h Handler) SubscriptionID
	// Off removes a handler registered with On. Unknown ids are ignored.
	Off(topic Topic, id SubscriptionID)
}

// AddMemberOptions carries the optional QueueAdd parameters.
type AddMemberOptions struct {
	MemberName     string `json:"member_name,omitempty"`
	StateInterface string `json:"state_interface,omitempty"`
	Penalty        int    `json:"penalty,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
	Reason         string `json:"reason,omitempty"`
	RingInUse      *bool  `json:"ringinuse,omitempty"`
}

// Connected reports whether p is non-nil and connected.
func Connected(p Provider) bool {
	return p != nil && p.IsConnected()
}
