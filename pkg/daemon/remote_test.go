package daemon

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/engine"
	"github.com/grovetools/queued/internal/daemon/server"
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

func startDaemon(t *testing.T) (*mocks.Provider, string) {
	t.Helper()
	p := &mocks.Provider{
		GetQueueStatusFunc: func(ctx context.Context, name string) ([]*models.Queue, error) {
			return []*models.Queue{{
				Name:    "support",
				Members: []*models.QueueMember{{Interface: "SIP/300", Status: models.StatusNotInUse}},
			}}, nil
		},
	}
	eng := engine.New(store.New(), p, engine.Options{}, nil, testLogger())
	eng.Refresh(context.Background())

	srv := server.New(testLogger())
	srv.SetEngine(eng)
	sock := filepath.Join(t.TempDir(), "queued.sock")
	go srv.ListenAndServe(sock)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	require.Eventually(t, func() bool {
		c, err := NewForSocket(sock)
		if err != nil {
			return false
		}
		defer c.Close()
		return c.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)
	return p, sock
}

func TestNewForSocketNotRunning(t *testing.T) {
	_, err := NewForSocket(filepath.Join(t.TempDir(), "queued.sock"))
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
}

func TestRemoteClientOverSocket(t *testing.T) {
	p, sock := startDaemon(t)
	c, err := NewForSocket(sock)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	queues, err := c.Queues(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "support", queues[0].Name)

	_, err = c.Queue(ctx, "sales")
	assert.True(t, errors.Is(err, errors.ErrCodeQueueNotFound))

	resp, err := c.Member(ctx, OpPause, models.MemberRequest{Queue: "support", Interface: "SIP/300", Reason: "Break"})
	require.NoError(t, err)
	assert.True(t, resp.Member.Paused)

	rollups, err := c.Rollups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rollups.TotalPaused)

	p.Disconnected = true
	_, err = c.Member(ctx, OpUnpause, models.MemberRequest{Queue: "support", Interface: "SIP/300"})
	assert.True(t, errors.Is(err, errors.ErrCodeNotConnected))
	assert.Equal(t, "AMI client not connected", errors.Message(err))

	refresh, err := c.Refresh(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "AMI client not connected", refresh.Status.Error)
}

func TestStreamUpdates(t *testing.T) {
	p, sock := startDaemon(t)
	c := NewRemoteClient(sock)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.StreamUpdates(ctx)
	require.NoError(t, err)

	initial := <-ch
	assert.Equal(t, models.StreamInitial, initial.Type)
	assert.Equal(t, []string{"support"}, initial.Names)

	p.Emit(ami.TopicCallerJoin, &ami.CallerJoinPayload{Queue: "support", UniqueID: "c9"})

	select {
	case u := <-ch:
		assert.Equal(t, "entries", u.Type)
		require.Len(t, u.Queues, 1)
		assert.Equal(t, 1, u.Queues[0].Calls)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	for range ch {
	}
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewRemoteClientURL(ts.URL + "/")
	_, err := c.Rollups(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.GetCode(err))
	assert.Equal(t, "engine not initialized", errors.Message(err))
	assert.False(t, c.IsRunning())
}

func TestRunningConfigOverTCP(t *testing.T) {
	srv := server.New(testLogger())
	srv.SetRunningConfig(&models.RunningConfig{Version: "1.2.3", RefreshInterval: 5 * time.Second})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := NewRemoteClientURL(ts.URL)
	cfg, err := c.RunningConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.True(t, c.IsRunning())
}
