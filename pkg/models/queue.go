package models

import (
	"strings"
	"time"
)

// Queue is a named routing group holding live members and waiting callers.
type Queue struct {
	Name             string         `json:"name"`
	Strategy         string         `json:"strategy"`
	Calls            int            `json:"calls"`
	HoldTime         int            `json:"holdtime"`
	TalkTime         int            `json:"talktime"`
	Completed        int            `json:"completed"`
	Abandoned        int            `json:"abandoned"`
	ServiceLevel     int            `json:"service_level"`
	ServiceLevelPerf float64        `json:"service_level_perf"`
	Weight           int            `json:"weight"`
	Members          []*QueueMember `json:"members"`
	Entries          []*QueueEntry  `json:"entries"`
	LastUpdated      time.Time      `json:"last_updated"`
	ServerID         int            `json:"server_id,omitempty"`
}

// Membership describes how a member was added to a queue.
type Membership string

const (
	MembershipStatic  Membership = "static"
	MembershipDynamic Membership = "dynamic"
)

// QueueMember is an agent interface registered in a queue.
type QueueMember struct {
	Queue          string       `json:"queue"`
	Name           string       `json:"name"`
	Interface      string       `json:"interface"`
	StateInterface string       `json:"state_interface,omitempty"`
	Membership     Membership   `json:"membership"`
	Penalty        int          `json:"penalty"`
	CallsTaken     int          `json:"calls_taken"`
	LastCall       int64        `json:"last_call"`
	LastPause      int64        `json:"last_pause"`
	LoginTime      int64        `json:"login_time"`
	InCall         bool         `json:"in_call"`
	Status         MemberStatus `json:"status"`
	StatusLabel    string       `json:"status_label,omitempty"`
	Paused         bool         `json:"paused"`
	PausedReason   string       `json:"paused_reason"`
	WrapupTime     int          `json:"wrapup_time"`
	RingInUse      bool         `json:"ringinuse"`
	ServerID       int          `json:"server_id,omitempty"`
}

// QueueEntry is a waiting caller's position record within a queue.
type QueueEntry struct {
	Queue             string `json:"queue"`
	Position          int    `json:"position"`
	Channel           string `json:"channel"`
	UniqueID          string `json:"unique_id"`
	CallerIDNum       string `json:"caller_id_num"`
	CallerIDName      string `json:"caller_id_name"`
	ConnectedLineNum  string `json:"connected_line_num"`
	ConnectedLineName string `json:"connected_line_name"`
	Wait              int    `json:"wait"`
	Priority          int    `json:"priority"`
	ServerID          int    `json:"server_id,omitempty"`
}

// QueueSummary is the per-queue projection returned by a summary query.
// It is never merged into the queue store.
type QueueSummary struct {
	Queue           string `json:"queue"`
	LoggedIn        int    `json:"logged_in"`
	Available       int    `json:"available"`
	Callers         int    `json:"callers"`
	HoldTime        int    `json:"holdtime"`
	TalkTime        int    `json:"talktime"`
	LongestHoldTime int    `json:"longest_hold_time"`
	ServerID        int    `json:"server_id,omitempty"`
}

// Clone returns a deep copy of q.
func (q *Queue) Clone() *Queue {
	if q == nil {
		return nil
	}
	c := *q
	c.Members = make([]*QueueMember, len(q.Members))
	for i, m := range q.Members {
		c.Members[i] = m.Clone()
	}
	c.Entries = make([]*QueueEntry, len(q.Entries))
	for i, e := range q.Entries {
		c.Entries[i] = e.Clone()
	}
	return &c
}

// Overwrite copies every field of src into q, keeping q's identity.
// Member and entry slices are replaced by copies of src's.
func (q *Queue) Overwrite(src *Queue) {
	if q == nil || src == nil || q == src {
		return
	}
	fresh := src.Clone()
	*q = *fresh
}

// Member returns the member with the given interface and its index, or nil and -1.
func (q *Queue) Member(iface string) (*QueueMember, int) {
	for i, m := range q.Members {
		if m.Interface == iface {
			return m, i
		}
	}
	return nil, -1
}

// Entry returns the entry with the given unique id and its index, or nil and -1.
func (q *Queue) Entry(uniqueID string) (*QueueEntry, int) {
	for i, e := range q.Entries {
		if e.UniqueID == uniqueID {
			return e, i
		}
	}
	return nil, -1
}

// RemoveMember splices the member at index i out of q.Members.
func (q *Queue) RemoveMember(i int) *QueueMember {
	m := q.Members[i]
	q.Members = append(q.Members[:i:i], q.Members[i+1:]...)
	return m
}

// RemoveEntry splices the entry at index i out of q.Entries.
func (q *Queue) RemoveEntry(i int) *QueueEntry {
	e := q.Entries[i]
	q.Entries = append(q.Entries[:i:i], q.Entries[i+1:]...)
	return e
}

// Clone returns a copy of m.
func (m *QueueMember) Clone() *QueueMember {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// SetPaused applies a pause state. Unpausing always clears the reason.
func (m *QueueMember) SetPaused(paused bool, reason string) {
	m.Paused = paused
	if paused {
		m.PausedReason = reason
	} else {
		m.PausedReason = ""
	}
}

// Available reports whether the member can take a call right now.
func (m *QueueMember) Available() bool {
	return !m.Paused && m.Status == StatusNotInUse
}

// Clone returns a copy of e.
func (e *QueueEntry) Clone() *QueueEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// ParseMembership normalizes the membership strings reported by the switch.
func ParseMembership(s string) Membership {
	if strings.EqualFold(strings.TrimSpace(s), string(MembershipStatic)) {
		return MembershipStatic
	}
	return MembershipDynamic
}
