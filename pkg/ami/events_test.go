package ami

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMemberStatusKeepsAbsentFieldsNil(t *testing.T) {
	ev, err := DecodeEvent(TopicMemberStatus, map[string]any{
		"Event":     "QueueMemberStatus",
		"Queue":     "support",
		"Interface": "SIP/1000",
		"Status":    "2",
		"Paused":    "1",
		"Penalty":   "3",
		"ServerID":  "7",
	})
	require.NoError(t, err)
	assert.Equal(t, TopicMemberStatus, ev.Topic)
	assert.Equal(t, 7, ev.ServerID)

	p, ok := ev.Payload.(*MemberStatusPayload)
	require.True(t, ok)
	assert.Equal(t, "support", p.Queue)
	require.NotNil(t, p.Status)
	assert.Equal(t, 2, *p.Status)
	require.NotNil(t, p.Paused)
	assert.True(t, *p.Paused)
	require.NotNil(t, p.Penalty)
	assert.Equal(t, 3, *p.Penalty)

	assert.Nil(t, p.PausedReason)
	assert.Nil(t, p.CallsTaken)
	assert.Nil(t, p.MemberName)
}

func TestDecodeCallerEvents(t *testing.T) {
	ev, err := DecodeEvent(TopicCallerJoin, map[string]any{
		"Queue":        "support",
		"Uniqueid":     "1700000000.5",
		"Channel":      "SIP/trunk-0001",
		"Position":     2,
		"CallerIDNum":  "5551234",
		"CallerIDName": "Alice",
	})
	require.NoError(t, err)
	join := ev.Payload.(*CallerJoinPayload)
	assert.Equal(t, "1700000000.5", join.UniqueID)
	assert.Equal(t, 2, join.Position)
	assert.Equal(t, "Alice", join.CallerIDName)

	ev, err = DecodeEvent(TopicCallerAbandon, map[string]any{
		"Queue":    "support",
		"Uniqueid": "1700000000.5",
		"HoldTime": "42",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, ev.Payload.(*CallerAbandonPayload).HoldTime)
}

func TestDecodeUnknownTopic(t *testing.T) {
	_, err := DecodeEvent(Topic("AgentCalled"), map[string]any{})
	assert.Error(t, err)
	assert.False(t, IsTopic("AgentCalled"))
	assert.True(t, IsTopic("QueueCallerLeave"))
}

func TestBusOnOff(t *testing.T) {
	var bus Bus
	var got []string

	first := bus.On(TopicCallerJoin, func(Event) { got = append(got, "first") })
	bus.On(TopicCallerJoin, func(Event) { got = append(got, "second") })
	bus.On(TopicCallerLeave, func(Event) { got = append(got, "leave") })

	bus.Publish(Event{Topic: TopicCallerJoin})
	assert.Equal(t, []string{"first", "second"}, got)

	bus.Off(TopicCallerJoin, first)
	bus.Off(TopicCallerJoin, SubscriptionID(999))
	got = nil
	bus.Publish(Event{Topic: TopicCallerJoin})
	assert.Equal(t, []string{"second"}, got)
	assert.Equal(t, 1, bus.Count(TopicCallerJoin))
	assert.Equal(t, 1, bus.Count(TopicCallerLeave))
}
