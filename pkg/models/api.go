package models

import "time"

// WaitRecord identifies the longest waiting caller. The zero value means no
// caller is waiting anywhere.
type WaitRecord struct {
	Queue string `json:"queue"`
	Wait  int    `json:"wait"`
}

// Rollups holds the cross-queue metrics for one store version.
type Rollups struct {
	Version             uint64     `json:"version"`
	TotalCallers        int        `json:"total_callers"`
	TotalAvailable      int        `json:"total_available"`
	TotalPaused         int        `json:"total_paused"`
	LongestWait         WaitRecord `json:"longest_wait"`
	OverallServiceLevel float64    `json:"overall_service_level"`
}

// SyncStatus reports the state of the refresh family of operations.
type SyncStatus struct {
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
}

// StreamUpdate is one store change as delivered to stream clients and the
// Redis channel. Queues carries copies of the affected queues; Names lists
// them, including queues that were removed.
type StreamUpdate struct {
	Type       string    `json:"type"`
	Source     string    `json:"source,omitempty"`
	Version    uint64    `json:"version"`
	Names      []string  `json:"names,omitempty"`
	Queues     []*Queue  `json:"queues,omitempty"`
	ConfigFile string    `json:"config_file,omitempty"`
	Time       time.Time `json:"time"`
}

// Stream update types that are not store changes.
const (
	StreamInitial = "initial"
)

// RefreshRequest is the body of POST /api/refresh. An empty queue refreshes
// everything.
type RefreshRequest struct {
	Queue string `json:"queue,omitempty"`
}

// RefreshResponse reports the sync status after a refresh.
type RefreshResponse struct {
	Status SyncStatus `json:"status"`
	Queues int        `json:"queues"`
}

// MemberRequest is the body of the member command endpoints. Fields that do
// not apply to a command are ignored.
type MemberRequest struct {
	Queue          string `json:"queue"`
	Interface      string `json:"interface"`
	Reason         string `json:"reason,omitempty"`
	Penalty        int    `json:"penalty,omitempty"`
	MemberName     string `json:"member_name,omitempty"`
	StateInterface string `json:"state_interface,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
}

// CommandResponse acknowledges a member command. Member is the local mirror
// after the change, when one exists.
type CommandResponse struct {
	OK     bool         `json:"ok"`
	Member *QueueMember `json:"member,omitempty"`
}

// ErrorResponse is returned by the daemon API on failure.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// StatusLabel pairs a member status with its display label.
type StatusLabel struct {
	Status MemberStatus `json:"status"`
	Name   string       `json:"name"`
	Label  string       `json:"label"`
}

// RunningConfig holds the active configuration being used by the daemon.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
	SummaryInterval time.Duration `json:"summary_interval"`
	ProviderURL     string        `json:"provider_url,omitempty"`
	ConfigFiles     []string      `json:"config_files,omitempty"`
	RedisChannel    string        `json:"redis_channel,omitempty"`
	Version         string        `json:"version"`
	StartedAt       time.Time     `json:"started_at"`
	ReloadedAt      time.Time     `json:"reloaded_at,omitempty"`
}
