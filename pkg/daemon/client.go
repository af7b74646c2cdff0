// Package daemon provides a client for the queued daemon API.
package daemon

import (
	"context"

	"github.com/grovetools/queued/pkg/models"
)

// Client defines the interface for interacting with the queue daemon.
type Client interface {
	// Queues returns every mirrored queue in store order.
	Queues(ctx context.Context) ([]*models.Queue, error)

	// Queue returns a single queue. A missing queue is a QUEUE_NOT_FOUND error.
	Queue(ctx context.Context, name string) (*models.Queue, error)

	Rollups(ctx context.Context) (*models.Rollups, error)
	Status(ctx context.Context) (*models.SyncStatus, error)

	// Summary fetches a fresh summary from the switch, or the last fetched
	// one when cached is true.
	Summary(ctx context.Context, cached bool) ([]*models.QueueSummary, error)

	// Refresh asks the daemon to refresh one queue, or all when queue is empty.
	// Refresh failures are reported in the returned status.
	Refresh(ctx context.Context, queue string) (*models.RefreshResponse, error)

	// Member runs a member command: pause, unpause, add, remove or penalty.
	Member(ctx context.Context, op string, req models.MemberRequest) (*models.CommandResponse, error)

	PauseReasons(ctx context.Context) ([]string, error)
	StatusLabels(ctx context.Context) ([]models.StatusLabel, error)
	RunningConfig(ctx context.Context) (*models.RunningConfig, error)

	// StreamUpdates subscribes to real-time store updates. The channel is
	// closed when ctx is cancelled or the connection is lost.
	StreamUpdates(ctx context.Context) (<-chan models.StreamUpdate, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// Member command operations.
const (
	OpPause   = "pause"
	OpUnpause = "unpause"
	OpAdd     = "add"
	OpRemove  = "remove"
	OpPenalty = "penalty"
)
