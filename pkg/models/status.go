package models

import (
	"strconv"
	"strings"
)

// MemberStatus is the device state the switch reports for a queue member.
// Values match the numeric codes used on the wire.
type MemberStatus int

const (
	StatusUnknown MemberStatus = iota
	StatusNotInUse
	StatusInUse
	StatusBusy
	StatusInvalid
	StatusUnavailable
	StatusRinging
	StatusRingInUse
	StatusOnHold
)

var statusNames = map[MemberStatus]string{
	StatusUnknown:     "Unknown",
	StatusNotInUse:    "NotInUse",
	StatusInUse:       "InUse",
	StatusBusy:        "Busy",
	StatusInvalid:     "Invalid",
	StatusUnavailable: "Unavailable",
	StatusRinging:     "Ringing",
	StatusRingInUse:   "RingInUse",
	StatusOnHold:      "OnHold",
}

// String returns the canonical status name.
func (s MemberStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether s is one of the known statuses.
func (s MemberStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseMemberStatus accepts either a numeric code or a status name (case-insensitive).
func ParseMemberStatus(s string) (MemberStatus, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		st := MemberStatus(n)
		return st, st.Valid()
	}
	for st, name := range statusNames {
		if strings.EqualFold(name, s) {
			return st, true
		}
	}
	return StatusUnknown, false
}

// AllStatuses returns the known statuses in code order.
func AllStatuses() []MemberStatus {
	out := make([]MemberStatus, 0, len(statusNames))
	for st := StatusUnknown; st <= StatusOnHold; st++ {
		out = append(out, st)
	}
	return out
}

// DefaultStatusLabels are used when no status_labels are configured.
var DefaultStatusLabels = map[MemberStatus]string{
	StatusUnknown:     "Unknown",
	StatusNotInUse:    "Available",
	StatusInUse:       "In call",
	StatusBusy:        "Busy",
	StatusInvalid:     "Invalid",
	StatusUnavailable: "Unavailable",
	StatusRinging:     "Ringing",
	StatusRingInUse:   "Ringing (in use)",
	StatusOnHold:      "On hold",
}

// DefaultPauseReasons are offered when no pause_reasons are configured.
var DefaultPauseReasons = []string{
	"Break",
	"Lunch",
	"Meeting",
	"Training",
	"Administrative",
	"Other",
}
