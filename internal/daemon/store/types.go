// Package store provides the in-memory queue state store for the queue daemon.
package store

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateQueues       UpdateType = "queues"
	UpdateMember       UpdateType = "member"
	UpdateEntries      UpdateType = "entries"
	UpdateCounters     UpdateType = "counters"
	UpdateRemoved      UpdateType = "removed"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update sources.
const (
	SourceRefresh = "refresh"
	SourceEvent   = "event"
	SourceCommand = "command"
	SourceClear   = "clear"
	SourceConfig  = "config"
)

// Update represents a change to the state.
type Update struct {
	Type    UpdateType
	Source  string   // Which writer produced this update (refresh, event, command, ...)
	Queues  []string // Names of the affected queues
	Version uint64   // Store version after the change
	Payload interface{}
}
