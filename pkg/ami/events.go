package ami

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Topic names a push event stream. Values are the switch's event names.
type Topic string

const (
	TopicMemberStatus  Topic = "QueueMemberStatus"
	TopicCallerJoin    Topic = "QueueCallerJoin"
	TopicCallerLeave   Topic = "QueueCallerLeave"
	TopicCallerAbandon Topic = "QueueCallerAbandon"
)

// Topics lists every topic the engine subscribes to.
var Topics = []Topic{TopicMemberStatus, TopicCallerJoin, TopicCallerLeave, TopicCallerAbandon}

// Handler receives events for a subscribed topic.
type Handler func(Event)

// Event is the envelope delivered to handlers. Payload holds one of
// *MemberStatusPayload, *CallerJoinPayload, *CallerLeavePayload or
// *CallerAbandonPayload depending on Topic.
type Event struct {
	Topic    Topic
	ServerID int
	Received time.Time
	Payload  any
}

// MemberStatusPayload reports a member's current state. Nil fields were not
// present in the event and must not overwrite known values.
type MemberStatusPayload struct {
	Queue          string  `mapstructure:"Queue"`
	Interface      string  `mapstructure:"Interface"`
	MemberName     *string `mapstructure:"MemberName"`
	StateInterface *string `mapstructure:"StateInterface"`
	Membership     *string `mapstructure:"Membership"`
	Penalty        *int    `mapstructure:"Penalty"`
	CallsTaken     *int    `mapstructure:"CallsTaken"`
	LastCall       *int64  `mapstructure:"LastCall"`
	LastPause      *int64  `mapstructure:"LastPause"`
	LoginTime      *int64  `mapstructure:"LoginTime"`
	InCall         *bool   `mapstructure:"InCall"`
	Status         *int    `mapstructure:"Status"`
	Paused         *bool   `mapstructure:"Paused"`
	PausedReason   *string `mapstructure:"PausedReason"`
	WrapupTime     *int    `mapstructure:"Wrapuptime"`
	RingInUse      *bool   `mapstructure:"Ringinuse"`
	ServerID       int     `mapstructure:"ServerID"`
}

// CallerJoinPayload reports a caller entering a queue.
type CallerJoinPayload struct {
	Queue             string `mapstructure:"Queue"`
	UniqueID          string `mapstructure:"Uniqueid"`
	Channel           string `mapstructure:"Channel"`
	Position          int    `mapstructure:"Position"`
	Priority          int    `mapstructure:"Priority"`
	CallerIDNum       string `mapstructure:"CallerIDNum"`
	CallerIDName      string `mapstructure:"CallerIDName"`
	ConnectedLineNum  string `mapstructure:"ConnectedLineNum"`
	ConnectedLineName string `mapstructure:"ConnectedLineName"`
	ServerID          int    `mapstructure:"ServerID"`
}

// CallerLeavePayload reports a caller leaving a queue (answered or otherwise).
type CallerLeavePayload struct {
	Queue    string `mapstructure:"Queue"`
	UniqueID string `mapstructure:"Uniqueid"`
	Channel  string `mapstructure:"Channel"`
	Position int    `mapstructure:"Position"`
	ServerID int    `mapstructure:"ServerID"`
}

// CallerAbandonPayload reports a caller hanging up while waiting.
type CallerAbandonPayload struct {
	Queue            string `mapstructure:"Queue"`
	UniqueID         string `mapstructure:"Uniqueid"`
	Position         int    `mapstructure:"Position"`
	OriginalPosition int    `mapstructure:"OriginalPosition"`
	HoldTime         int    `mapstructure:"HoldTime"`
	ServerID         int    `mapstructure:"ServerID"`
}

// IsTopic reports whether name is one of the engine's topics.
func IsTopic(name string) bool {
	for _, t := range Topics {
		if string(t) == name {
			return true
		}
	}
	return false
}

// DecodeEvent converts a raw field map, as read from the switch, into a typed
// envelope. Numeric and boolean fields may arrive as strings.
func DecodeEvent(topic Topic, fields map[string]any) (Event, error) {
	var payload any
	switch topic {
	case TopicMemberStatus:
		payload = &MemberStatusPayload{}
	case TopicCallerJoin:
		payload = &CallerJoinPayload{}
	case TopicCallerLeave:
		payload = &CallerLeavePayload{}
	case TopicCallerAbandon:
		payload = &CallerAbandonPayload{}
	default:
		return Event{}, fmt.Errorf("unknown event topic %q", topic)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           payload,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("failed to create event decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return Event{}, fmt.Errorf("failed to decode %s event: %w", topic, err)
	}

	return Event{
		Topic:    topic,
		ServerID: serverID(payload),
		Received: time.Now(),
		Payload:  payload,
	}, nil
}

func serverID(payload any) int {
	switch p := payload.(type) {
	case *MemberStatusPayload:
		return p.ServerID
	case *CallerJoinPayload:
		return p.ServerID
	case *CallerLeavePayload:
		return p.ServerID
	case *CallerAbandonPayload:
		return p.ServerID
	}
	return 0
}
