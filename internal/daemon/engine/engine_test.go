package engine

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	qerrors "github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/collector"
	"github.com/grovetools/queued/internal/daemon/rollup"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/ami/mocks"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fixture() []*models.Queue {
	return []*models.Queue{
		{
			Name:             "Q1",
			ServiceLevelPerf: 80,
			Members: []*models.QueueMember{
				{Interface: "SIP/100", Status: models.StatusNotInUse},
				{Interface: "SIP/101", Status: models.StatusNotInUse, Paused: true, PausedReason: "Break"},
			},
			Entries: []*models.QueueEntry{{UniqueID: "a", Wait: 30}},
			Calls:   1,
		},
		{
			Name:             "Q2",
			ServiceLevelPerf: 90,
			Members: []*models.QueueMember{
				{Interface: "PJSIP/200", Status: models.StatusInUse},
			},
			Entries: []*models.QueueEntry{{UniqueID: "b", Wait: 60}, {UniqueID: "c", Wait: 5}},
			Calls:   2,
		},
	}
}

func newEngine(opts Options) (*mocks.Provider, *Engine) {
	p := &mocks.Provider{
		GetQueueStatusFunc: func(ctx context.Context, name string) ([]*models.Queue, error) {
			return fixture(), nil
		},
	}
	return p, New(store.New(), p, opts, nil, testLogger())
}

func TestEngineRefreshAndRollups(t *testing.T) {
	_, e := newEngine(Options{})

	e.Refresh(context.Background())

	assert.Len(t, e.Queues(), 2)
	assert.Equal(t, 3, e.TotalCallers())
	assert.Equal(t, 1, e.TotalAvailable())
	assert.Equal(t, 1, e.TotalPaused())
	assert.Equal(t, rollup.WaitRecord{Queue: "Q2", Wait: 60}, e.LongestWait())
	assert.InDelta(t, 85.0, e.OverallServiceLevel(), 0.0001)
	assert.Empty(t, e.Status().Error)
}

func TestEngineMemberLookup(t *testing.T) {
	_, e := newEngine(Options{})
	e.Refresh(context.Background())

	m, err := e.Member("Q1", "SIP/101")
	require.NoError(t, err)
	assert.True(t, m.Paused)
	assert.Equal(t, "Break", m.PausedReason)

	_, err = e.Member("Q1", "SIP/999")
	assert.True(t, qerrors.Is(err, qerrors.ErrCodeMemberNotFound))

	_, err = e.Member("Q9", "SIP/100")
	assert.True(t, qerrors.Is(err, qerrors.ErrCodeQueueNotFound))
}

func TestEngineRollupsFollowEvents(t *testing.T) {
	p, e := newEngine(Options{})
	e.Refresh(context.Background())

	p.Emit(ami.TopicCallerJoin, &ami.CallerJoinPayload{Queue: "Q1", UniqueID: "d"})
	assert.Equal(t, 4, e.TotalCallers())

	p.Emit(ami.TopicCallerLeave, &ami.CallerLeavePayload{Queue: "Q1", UniqueID: "d"})
	assert.Equal(t, 3, e.TotalCallers())

	paused := true
	p.Emit(ami.TopicMemberStatus, &ami.MemberStatusPayload{Queue: "Q1", Interface: "SIP/100", Paused: &paused})
	assert.Equal(t, 0, e.TotalAvailable())
	assert.Equal(t, 2, e.TotalPaused())
}

func TestEngineCommands(t *testing.T) {
	p, e := newEngine(Options{})
	ctx := context.Background()
	e.Refresh(ctx)

	require.NoError(t, e.PauseMember(ctx, "Q1", "SIP/100", "Lunch"))
	assert.Equal(t, 2, e.TotalPaused())

	require.NoError(t, e.UnpauseMember(ctx, "Q1", "SIP/100"))
	q, _ := e.Queue("Q1")
	m, _ := q.Member("SIP/100")
	assert.False(t, m.Paused)
	assert.Empty(t, m.PausedReason)

	require.NoError(t, e.SetPenalty(ctx, "Q1", "SIP/100", 5))
	q, _ = e.Queue("Q1")
	m, _ = q.Member("SIP/100")
	assert.Equal(t, 5, m.Penalty)

	require.NoError(t, e.AddMember(ctx, "Q1", "SIP/102", nil))
	require.NoError(t, e.RemoveMember(ctx, "Q1", "SIP/101"))
	q, _ = e.Queue("Q1")
	assert.Len(t, q.Members, 1)

	assert.Len(t, p.Calls("QueuePause"), 2)
	assert.Len(t, p.Calls("QueueAdd"), 1)
}

func TestEngineClearDisposesSubscriptions(t *testing.T) {
	p, e := newEngine(Options{})
	e.Refresh(context.Background())
	require.Equal(t, 1, p.Count(ami.TopicCallerJoin))

	e.Clear()

	assert.Empty(t, e.Queues())
	for _, topic := range ami.Topics {
		assert.Equal(t, 0, p.Count(topic))
	}
	assert.Equal(t, 0, e.TotalCallers())
	assert.Equal(t, rollup.WaitRecord{}, e.LongestWait())

	e.Clear()
}

func TestEngineApplyOptions(t *testing.T) {
	var updates atomic.Int32
	_, e := newEngine(Options{
		OnQueueUpdate: func(*models.Queue) { updates.Add(1) },
	})
	e.Refresh(context.Background())
	require.Len(t, e.Queues(), 2)

	e.ApplyOptions(Options{
		MemberFilter: func(m *models.QueueMember) bool { return strings.HasPrefix(m.Interface, "SIP/") },
		PauseReasons: []string{"Coaching"},
		StatusLabels: map[models.MemberStatus]string{models.StatusNotInUse: "Ready"},
	})

	assert.Equal(t, []string{"Coaching"}, e.PauseReasons())
	assert.Equal(t, "Ready", e.StatusLabel(models.StatusNotInUse))

	q, _ := e.Queue("Q2")
	assert.Len(t, q.Members, 1, "stored queues are not re-filtered")

	e.Refresh(context.Background())
	q, _ = e.Queue("Q2")
	assert.Empty(t, q.Members)
	assert.Equal(t, int32(4), updates.Load(), "callbacks survive ApplyOptions")
}

func TestEngineDefaults(t *testing.T) {
	e := New(store.New(), nil, Options{}, nil, testLogger())

	assert.Equal(t, models.DefaultPauseReasons, e.PauseReasons())
	assert.Equal(t, "Available", e.StatusLabel(models.StatusNotInUse))

	e.Refresh(context.Background())
	assert.Equal(t, "AMI client not connected", e.Status().Error)

	_, err := e.GetSummary(context.Background())
	assert.Error(t, err)
	e.Clear()
}

func TestEngineStartRunsCollectors(t *testing.T) {
	_, e := newEngine(Options{})
	var runs atomic.Int32
	for i := 0; i < 2; i++ {
		e.Register(collector.Func("test", func(ctx context.Context) error {
			runs.Add(1)
			<-ctx.Done()
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
