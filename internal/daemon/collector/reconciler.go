package collector

import (
	"sync"

	"github.com/grovetools/queued/internal/daemon/metrics"
	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

type registration struct {
	topic ami.Topic
	id    ami.SubscriptionID
}

// EventReconciler applies push events from the provider to the store.
// Events never create queues: anything naming a queue the store does not
// hold is dropped, as are events missing their queue or id fields.
type EventReconciler struct {
	provider ami.Provider
	store    *store.Store
	opts     *options.Live
	recorder metrics.Recorder
	logger   *logrus.Entry

	mu   sync.Mutex
	regs []registration
}

// NewEventReconciler creates an EventReconciler and subscribes it to the
// four queue topics on p. A nil provider yields a reconciler with no
// subscriptions whose Handle can still be fed directly.
func NewEventReconciler(p ami.Provider, st *store.Store, opts *options.Live, rec metrics.Recorder, logger *logrus.Entry) *EventReconciler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	r := &EventReconciler{
		provider: p,
		store:    st,
		opts:     opts,
		recorder: rec,
		logger:   logger,
	}
	if p != nil {
		for _, topic := range ami.Topics {
			r.regs = append(r.regs, registration{topic: topic, id: p.On(topic, r.Handle)})
		}
	}
	return r
}

// Close removes every subscription made by NewEventReconciler.
func (r *EventReconciler) Close() {
	r.mu.Lock()
	regs := r.regs
	r.regs = nil
	r.mu.Unlock()

	for _, reg := range regs {
		r.provider.Off(reg.topic, reg.id)
	}
}

// Handle dispatches a single event.
func (r *EventReconciler) Handle(ev ami.Event) {
	var result string
	switch p := ev.Payload.(type) {
	case *ami.MemberStatusPayload:
		result = r.memberStatus(ev, p)
	case *ami.CallerJoinPayload:
		result = r.callerJoin(ev, p)
	case *ami.CallerLeavePayload:
		result = r.callerLeave(p)
	case *ami.CallerAbandonPayload:
		result = r.callerAbandon(p)
	default:
		result = metrics.ResultMalformed
	}

	r.recorder.EventHandled(string(ev.Topic), result)
	entry := r.logger.WithFields(logrus.Fields{"topic": ev.Topic, "result": result})
	if result == metrics.ResultMalformed {
		entry.Warn("Dropped malformed event")
	} else {
		entry.Debug("Event handled")
	}
}

func (r *EventReconciler) memberStatus(ev ami.Event, p *ami.MemberStatusPayload) string {
	if p == nil || p.Queue == "" || p.Interface == "" {
		return metrics.ResultMalformed
	}

	opts := r.opts.Load()
	var updated *models.QueueMember
	ok := r.store.Update(p.Queue, store.SourceEvent, store.UpdateMember, func(q *models.Queue) bool {
		existing, i := q.Member(p.Interface)
		if existing != nil {
			updated = existing.Clone()
		} else {
			updated = &models.QueueMember{
				Queue:      q.Name,
				Interface:  p.Interface,
				Membership: models.MembershipDynamic,
				ServerID:   ev.ServerID,
			}
		}
		applyMemberStatus(updated, p, opts)
		if i >= 0 {
			q.Members[i] = updated
		} else {
			q.Members = append(q.Members, updated)
		}
		return true
	})
	if !ok {
		return metrics.ResultUnknownQueue
	}

	if opts.OnMemberUpdate != nil {
		opts.OnMemberUpdate(p.Queue, updated.Clone())
	}
	return metrics.ResultApplied
}

// applyMemberStatus copies the fields present in p onto m.
func applyMemberStatus(m *models.QueueMember, p *ami.MemberStatusPayload, opts *options.Options) {
	if p.MemberName != nil {
		m.Name = *p.MemberName
	}
	if p.StateInterface != nil {
		m.StateInterface = *p.StateInterface
	}
	if p.Membership != nil {
		m.Membership = models.ParseMembership(*p.Membership)
	}
	if p.Penalty != nil {
		m.Penalty = *p.Penalty
	}
	if p.CallsTaken != nil {
		m.CallsTaken = *p.CallsTaken
	}
	if p.LastCall != nil {
		m.LastCall = *p.LastCall
	}
	if p.LastPause != nil {
		m.LastPause = *p.LastPause
	}
	if p.LoginTime != nil {
		m.LoginTime = *p.LoginTime
	}
	if p.InCall != nil {
		m.InCall = *p.InCall
	}
	if p.Status != nil {
		m.Status = models.MemberStatus(*p.Status)
		m.StatusLabel = opts.GetStatusLabel(m.Status)
	} else if m.StatusLabel == "" {
		m.StatusLabel = opts.GetStatusLabel(m.Status)
	}
	if p.Paused != nil {
		reason := m.PausedReason
		if p.PausedReason != nil {
			reason = *p.PausedReason
		}
		m.SetPaused(*p.Paused, reason)
	} else if p.PausedReason != nil && m.Paused {
		m.PausedReason = *p.PausedReason
	}
	if p.WrapupTime != nil {
		m.WrapupTime = *p.WrapupTime
	}
	if p.RingInUse != nil {
		m.RingInUse = *p.RingInUse
	}
}

func (r *EventReconciler) callerJoin(ev ami.Event, p *ami.CallerJoinPayload) string {
	if p == nil || p.Queue == "" || p.UniqueID == "" {
		return metrics.ResultMalformed
	}

	entry := &models.QueueEntry{
		Queue:             p.Queue,
		Position:          p.Position,
		Channel:           p.Channel,
		UniqueID:          p.UniqueID,
		CallerIDNum:       p.CallerIDNum,
		CallerIDName:      p.CallerIDName,
		ConnectedLineNum:  p.ConnectedLineNum,
		ConnectedLineName: p.ConnectedLineName,
		Wait:              0,
		Priority:          p.Priority,
		ServerID:          ev.ServerID,
	}
	ok := r.store.Update(p.Queue, store.SourceEvent, store.UpdateEntries, func(q *models.Queue) bool {
		// A repeated join for the same caller replaces the entry without
		// counting the caller twice.
		if _, i := q.Entry(p.UniqueID); i >= 0 {
			q.Entries[i] = entry
			return true
		}
		q.Entries = append(q.Entries, entry)
		q.Calls++
		return true
	})
	if !ok {
		return metrics.ResultUnknownQueue
	}

	if cb := r.opts.Load().OnCallerJoin; cb != nil {
		cb(entry.Clone(), p.Queue)
	}
	return metrics.ResultApplied
}

func (r *EventReconciler) callerLeave(p *ami.CallerLeavePayload) string {
	if p == nil || p.Queue == "" || p.UniqueID == "" {
		return metrics.ResultMalformed
	}
	if _, known := r.store.Get(p.Queue); !known {
		return metrics.ResultUnknownQueue
	}

	var removed *models.QueueEntry
	r.store.Update(p.Queue, store.SourceEvent, store.UpdateEntries, func(q *models.Queue) bool {
		removed = removeEntry(q, p.UniqueID)
		return removed != nil
	})
	if removed == nil {
		return metrics.ResultNotFound
	}

	if cb := r.opts.Load().OnCallerLeave; cb != nil {
		cb(removed.Clone(), p.Queue)
	}
	return metrics.ResultApplied
}

func (r *EventReconciler) callerAbandon(p *ami.CallerAbandonPayload) string {
	if p == nil || p.Queue == "" || p.UniqueID == "" {
		return metrics.ResultMalformed
	}

	var removed *models.QueueEntry
	ok := r.store.Update(p.Queue, store.SourceEvent, store.UpdateEntries, func(q *models.Queue) bool {
		removed = removeEntry(q, p.UniqueID)
		// The switch is authoritative for the abandon count; local entry
		// cleanup is best effort.
		q.Abandoned++
		return true
	})
	if !ok {
		return metrics.ResultUnknownQueue
	}

	if cb := r.opts.Load().OnCallerAbandon; cb != nil {
		cb(removed.Clone(), p.Queue)
	}
	return metrics.ResultApplied
}

// removeEntry drops the entry with uniqueID and decrements Calls, floored
// at zero. It returns nil when no entry matched.
func removeEntry(q *models.Queue, uniqueID string) *models.QueueEntry {
	_, i := q.Entry(uniqueID)
	if i < 0 {
		return nil
	}
	removed := q.RemoveEntry(i)
	if q.Calls > 0 {
		q.Calls--
	}
	return removed
}
