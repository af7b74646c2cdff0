package store

import (
	"testing"

	"github.com/grovetools/queued/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queue(name string, calls int) *models.Queue {
	return &models.Queue{Name: name, Calls: calls}
}

func TestSetPreservesIdentityAndOrder(t *testing.T) {
	st := New()
	st.Set("sales", queue("sales", 1))
	st.Set("support", queue("support", 2))

	held, ok := st.Get("sales")
	require.True(t, ok)

	st.Set("sales", &models.Queue{Name: "sales", Calls: 7, Strategy: "rrmemory"})

	again, _ := st.Get("sales")
	assert.Same(t, held, again)
	assert.Equal(t, 7, held.Calls)
	assert.Equal(t, "rrmemory", held.Strategy)
	assert.Equal(t, []string{"sales", "support"}, st.Names())
	assert.Equal(t, 2, st.Size())
}

func TestMergeIsOneVersion(t *testing.T) {
	st := New()
	before := st.Version()

	stored := st.Merge(SourceRefresh, []*models.Queue{queue("a", 0), queue("b", 0), queue("c", 0)})

	assert.Len(t, stored, 3)
	assert.Equal(t, before+1, st.Version())
	assert.Equal(t, []string{"a", "b", "c"}, st.Names())

	assert.Nil(t, st.Merge(SourceRefresh, nil))
	assert.Equal(t, before+1, st.Version(), "empty merge is not a mutation")
}

func TestSnapshotReturnsCopies(t *testing.T) {
	st := New()
	st.Set("sales", &models.Queue{
		Name:    "sales",
		Members: []*models.QueueMember{{Interface: "SIP/1000"}},
	})

	snap := st.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Members[0].Paused = true
	snap[0].Calls = 99

	live, _ := st.Get("sales")
	assert.False(t, live.Members[0].Paused)
	assert.Equal(t, 0, live.Calls)
}

func TestUpdate(t *testing.T) {
	st := New()
	st.Set("sales", queue("sales", 0))
	v := st.Version()

	changed := st.Update("sales", SourceEvent, UpdateEntries, func(q *models.Queue) bool {
		q.Calls++
		return true
	})
	assert.True(t, changed)
	assert.Equal(t, v+1, st.Version())

	changed = st.Update("sales", SourceEvent, UpdateEntries, func(q *models.Queue) bool { return false })
	assert.False(t, changed)
	assert.Equal(t, v+1, st.Version())

	called := false
	changed = st.Update("missing", SourceEvent, UpdateEntries, func(q *models.Queue) bool {
		called = true
		return true
	})
	assert.False(t, changed)
	assert.False(t, called)
	assert.Equal(t, 1, st.Size())
}

func TestDeleteAndClear(t *testing.T) {
	st := New()
	st.Merge(SourceRefresh, []*models.Queue{queue("a", 0), queue("b", 0), queue("c", 0)})

	assert.True(t, st.Delete("b"))
	assert.False(t, st.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, st.Names())

	st.Clear()
	assert.Equal(t, 0, st.Size())
	assert.Empty(t, st.Snapshot())
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	st.Set("sales", queue("sales", 0))
	st.Update("sales", SourceCommand, UpdateMember, func(q *models.Queue) bool { return true })
	st.BroadcastConfigReload("queued.yml")

	u := <-ch
	assert.Equal(t, UpdateQueues, u.Type)
	assert.Equal(t, []string{"sales"}, u.Queues)
	assert.Equal(t, uint64(1), u.Version)

	u = <-ch
	assert.Equal(t, UpdateMember, u.Type)
	assert.Equal(t, SourceCommand, u.Source)
	assert.Equal(t, uint64(2), u.Version)

	u = <-ch
	assert.Equal(t, UpdateConfigReload, u.Type)
	assert.Equal(t, "queued.yml", u.Payload)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	st.Unsubscribe(ch)
	st.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
}

func TestStreamAttachesQueueCopies(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	live := st.Set("sales", queue("sales", 2))
	st.Delete("sales")
	st.BroadcastConfigReload("queued.toml")

	// The queue was deleted before the first update was converted.
	set := st.Stream(<-ch)
	assert.Equal(t, "queues", set.Type)
	assert.Equal(t, []string{"sales"}, set.Names)
	assert.Empty(t, set.Queues)

	removed := st.Stream(<-ch)
	assert.Equal(t, "removed", removed.Type)
	assert.Equal(t, []string{"sales"}, removed.Names)

	reload := st.Stream(<-ch)
	assert.Equal(t, "config_reload", reload.Type)
	assert.Equal(t, "queued.toml", reload.ConfigFile)

	st.Set("support", queue("support", 1))
	u := st.Stream(Update{Type: UpdateQueues, Queues: []string{"support"}})
	require.Len(t, u.Queues, 1)
	assert.Equal(t, 1, u.Queues[0].Calls)
	assert.NotSame(t, live, u.Queues[0])
}

func TestInitialCarriesWholeStore(t *testing.T) {
	st := New()
	st.Set("sales", queue("sales", 1))
	st.Set("support", queue("support", 0))

	u := st.Initial()
	assert.Equal(t, models.StreamInitial, u.Type)
	assert.Equal(t, uint64(2), u.Version)
	assert.Equal(t, []string{"sales", "support"}, u.Names)
	require.Len(t, u.Queues, 2)

	u.Queues[0].Calls = 99
	q, _ := st.Get("sales")
	assert.Equal(t, 1, q.Calls)
}
