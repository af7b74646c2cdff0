// Package options holds the engine's construction-time configuration:
// filters, callbacks, pause reasons and status labels.
package options

import (
	"sync/atomic"

	"github.com/grovetools/queued/pkg/models"
)

// Options configures the queue engine. Every field is optional.
//
// Callbacks run synchronously on the goroutine that applied the change,
// after the store lock is released, and receive copies of the data.
type Options struct {
	QueueFilter  func(q *models.Queue) bool
	MemberFilter func(m *models.QueueMember) bool

	OnQueueUpdate   func(q *models.Queue)
	OnMemberUpdate  func(queue string, m *models.QueueMember)
	OnCallerJoin    func(e *models.QueueEntry, queue string)
	OnCallerLeave   func(e *models.QueueEntry, queue string)
	OnCallerAbandon func(e *models.QueueEntry, queue string)

	PauseReasons []string
	StatusLabels map[models.MemberStatus]string
}

// AcceptQueue applies QueueFilter, accepting everything when unset.
func (o *Options) AcceptQueue(q *models.Queue) bool {
	return o.QueueFilter == nil || o.QueueFilter(q)
}

// AcceptMember applies MemberFilter, accepting everything when unset.
func (o *Options) AcceptMember(m *models.QueueMember) bool {
	return o.MemberFilter == nil || o.MemberFilter(m)
}

// GetPauseReasons returns the configured pause reasons or the defaults.
func (o *Options) GetPauseReasons() []string {
	if len(o.PauseReasons) > 0 {
		return append([]string(nil), o.PauseReasons...)
	}
	return append([]string(nil), models.DefaultPauseReasons...)
}

// GetStatusLabel returns the configured label for status, falling back to
// the built-in label and finally to the status name.
func (o *Options) GetStatusLabel(status models.MemberStatus) string {
	if label, ok := o.StatusLabels[status]; ok && label != "" {
		return label
	}
	if label, ok := models.DefaultStatusLabels[status]; ok {
		return label
	}
	return status.String()
}

// Live is a concurrently readable, replaceable Options value.
type Live struct {
	v atomic.Pointer[Options]
}

// NewLive returns a Live holding a copy of o.
func NewLive(o Options) *Live {
	l := &Live{}
	l.Store(o)
	return l
}

// Load returns the current options. The result must not be modified.
func (l *Live) Load() *Options {
	if o := l.v.Load(); o != nil {
		return o
	}
	return &Options{}
}

// Store replaces the current options.
func (l *Live) Store(o Options) {
	l.v.Store(&o)
}

// Update replaces the current options with fn applied to a copy of them.
func (l *Live) Update(fn func(o *Options)) {
	for {
		old := l.v.Load()
		next := Options{}
		if old != nil {
			next = *old
		}
		fn(&next)
		if l.v.CompareAndSwap(old, &next) {
			return
		}
	}
}
