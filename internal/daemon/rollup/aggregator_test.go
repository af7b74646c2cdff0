package rollup

import (
	"testing"

	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestEmptyStore(t *testing.T) {
	agg := New(store.New())

	assert.Equal(t, 0, agg.TotalCallers())
	assert.Equal(t, 0, agg.TotalAvailable())
	assert.Equal(t, 0, agg.TotalPaused())
	assert.Equal(t, WaitRecord{}, agg.LongestWait())
	assert.Equal(t, 0.0, agg.OverallServiceLevel())
}

func TestServiceLevelMean(t *testing.T) {
	st := store.New()
	st.Merge(store.SourceRefresh, []*models.Queue{
		{Name: "a", ServiceLevelPerf: 80},
		{Name: "b", ServiceLevelPerf: 90},
	})

	assert.Equal(t, 85.0, New(st).OverallServiceLevel())
}

func TestLongestWaitAcrossQueues(t *testing.T) {
	st := store.New()
	st.Merge(store.SourceRefresh, []*models.Queue{
		{Name: "Q1", Entries: []*models.QueueEntry{{UniqueID: "1", Wait: 30}, {UniqueID: "2", Wait: 45}}},
		{Name: "Q2", Entries: []*models.QueueEntry{{UniqueID: "3", Wait: 60}}},
	})

	assert.Equal(t, WaitRecord{Queue: "Q2", Wait: 60}, New(st).LongestWait())
}

func TestMemberCounts(t *testing.T) {
	st := store.New()
	st.Merge(store.SourceRefresh, []*models.Queue{
		{Name: "a", Calls: 2, Members: []*models.QueueMember{
			{Interface: "SIP/1", Status: models.StatusNotInUse},
			{Interface: "SIP/2", Status: models.StatusNotInUse, Paused: true},
			{Interface: "SIP/3", Status: models.StatusInUse},
		}},
		{Name: "b", Calls: 3, Members: []*models.QueueMember{
			{Interface: "SIP/1", Status: models.StatusNotInUse},
			{Interface: "SIP/4", Status: models.StatusUnavailable, Paused: true},
		}},
	})

	r := New(st).Rollups()
	assert.Equal(t, 5, r.TotalCallers)
	assert.Equal(t, 2, r.TotalAvailable)
	assert.Equal(t, 2, r.TotalPaused)
}

func TestRecomputesOnVersionChange(t *testing.T) {
	st := store.New()
	st.Set("a", &models.Queue{Name: "a", Calls: 1})
	agg := New(st)
	assert.Equal(t, 1, agg.TotalCallers())

	st.Update("a", store.SourceEvent, store.UpdateEntries, func(q *models.Queue) bool {
		q.Calls = 4
		return true
	})
	assert.Equal(t, 4, agg.TotalCallers())
	assert.Equal(t, st.Version(), agg.Rollups().Version)

	st.Clear()
	assert.Equal(t, 0, agg.TotalCallers())
}
