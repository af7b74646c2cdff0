package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/queued/internal/daemon/engine"
	"github.com/grovetools/queued/internal/daemon/metrics"
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

func sales() []*models.Queue {
	return []*models.Queue{{
		Name:             "sales",
		ServiceLevelPerf: 90,
		Members: []*models.QueueMember{
			{Interface: "SIP/100", Status: models.StatusNotInUse},
		},
		Entries: []*models.QueueEntry{{UniqueID: "c1", Wait: 12}},
		Calls:   1,
	}}
}

func newTestServer(t *testing.T) (*mocks.Provider, *engine.Engine, *httptest.Server) {
	t.Helper()
	p := &mocks.Provider{
		GetQueueStatusFunc: func(ctx context.Context, name string) ([]*models.Queue, error) {
			return sales(), nil
		},
	}
	m := metrics.New()
	eng := engine.New(store.New(), p, engine.Options{}, m, testLogger())
	eng.Refresh(context.Background())

	s := New(testLogger())
	s.SetEngine(eng)
	s.SetMetrics(m.Handler())
	s.SetRunningConfig(&RunningConfig{RefreshInterval: 10 * time.Second, Version: "test"})

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return p, eng, ts
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, v interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestQueuesAndRollups(t *testing.T) {
	_, _, ts := newTestServer(t)

	var queues []*models.Queue
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/queues", &queues))
	require.Len(t, queues, 1)
	assert.Equal(t, "sales", queues[0].Name)

	var q models.Queue
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/queues/sales", &q))
	assert.Equal(t, 1, q.Calls)

	var e models.ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/queues/nope", &e))
	assert.Equal(t, "QUEUE_NOT_FOUND", e.Code)

	var m models.QueueMember
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/queues/sales/members/SIP/100", &m))
	assert.Equal(t, "SIP/100", m.Interface)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/queues/sales/members/SIP/999", &e))
	assert.Equal(t, "MEMBER_NOT_FOUND", e.Code)
	assert.Equal(t, "member 'SIP/999' not found in queue 'sales'", e.Error)

	var r models.Rollups
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/rollups", &r))
	assert.Equal(t, 1, r.TotalCallers)
	assert.Equal(t, 1, r.TotalAvailable)
	assert.Equal(t, models.WaitRecord{Queue: "sales", Wait: 12}, r.LongestWait)
	assert.InDelta(t, 90.0, r.OverallServiceLevel, 0.001)
}

func TestRefreshReportsFailureInStatus(t *testing.T) {
	p, _, ts := newTestServer(t)
	p.GetQueueStatusFunc = func(ctx context.Context, name string) ([]*models.Queue, error) {
		return nil, errors.New("Network error")
	}

	var resp models.RefreshResponse
	assert.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/refresh", models.RefreshRequest{Queue: "sales"}, &resp))
	assert.Equal(t, "Network error", resp.Status.Error)
	assert.Equal(t, 1, resp.Queues)

	var st models.SyncStatus
	getJSON(t, ts.URL+"/api/status", &st)
	assert.Equal(t, "Network error", st.Error)
	assert.False(t, st.Loading)
}

func TestMemberCommands(t *testing.T) {
	p, eng, ts := newTestServer(t)

	var resp models.CommandResponse
	code := postJSON(t, ts.URL+"/api/members/pause", models.MemberRequest{Queue: "sales", Interface: "SIP/100", Reason: "Lunch"}, &resp)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Member)
	assert.True(t, resp.Member.Paused)
	assert.Equal(t, "Lunch", resp.Member.PausedReason)

	code = postJSON(t, ts.URL+"/api/members/penalty", models.MemberRequest{Queue: "sales", Interface: "SIP/100", Penalty: 5}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, resp.Member.Penalty)

	code = postJSON(t, ts.URL+"/api/members/add", models.MemberRequest{Queue: "sales", Interface: "SIP/101", MemberName: "Ana", Penalty: 2}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, resp.Member, "add waits for the next refresh or event")
	calls := p.Calls("QueueAdd")
	require.Len(t, calls, 1)
	opts := calls[0].Args[2].(*ami.AddMemberOptions)
	assert.Equal(t, "Ana", opts.MemberName)
	assert.Equal(t, 2, opts.Penalty)

	code = postJSON(t, ts.URL+"/api/members/remove", models.MemberRequest{Queue: "sales", Interface: "SIP/100"}, &resp)
	assert.Equal(t, http.StatusOK, code)
	q, _ := eng.Queue("sales")
	assert.Empty(t, q.Members)
}

func TestMemberCommandErrors(t *testing.T) {
	p, eng, ts := newTestServer(t)

	var e models.ErrorResponse
	code := postJSON(t, ts.URL+"/api/members/penalty", models.MemberRequest{Queue: "sales", Interface: "SIP/100", Penalty: -1}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_INPUT", e.Code)

	p.QueuePauseFunc = func(ctx context.Context, queue, iface string, paused bool, reason string) error {
		return errors.New("Interface not found")
	}
	code = postJSON(t, ts.URL+"/api/members/pause", models.MemberRequest{Queue: "sales", Interface: "SIP/100"}, &e)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Interface not found", e.Error)
	q, _ := eng.Queue("sales")
	assert.False(t, q.Members[0].Paused)

	p.Disconnected = true
	code = postJSON(t, ts.URL+"/api/members/unpause", models.MemberRequest{Queue: "sales", Interface: "SIP/100"}, &e)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "NOT_CONNECTED", e.Code)
	assert.Equal(t, "AMI client not connected", e.Error)

	resp, err := http.Post(ts.URL+"/api/members/transfer", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMemberCommandSurvivesClientDisconnect(t *testing.T) {
	p, eng, ts := newTestServer(t)

	started := make(chan struct{})
	release := make(chan struct{})
	provErr := make(chan error, 1)
	p.QueuePauseFunc = func(ctx context.Context, queue, iface string, paused bool, reason string) error {
		close(started)
		<-release
		provErr <- ctx.Err()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	body, err := json.Marshal(models.MemberRequest{Queue: "sales", Interface: "SIP/100", Reason: "Lunch"})
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/api/members/pause", bytes.NewReader(body))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()

	<-started
	cancel()
	require.Error(t, <-done)
	// Give the server time to observe the closed connection.
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-provErr)
	require.Eventually(t, func() bool {
		q, _ := eng.Queue("sales")
		m, _ := q.Member("SIP/100")
		return m != nil && m.Paused && m.PausedReason == "Lunch"
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshSurvivesClientDisconnect(t *testing.T) {
	p, eng, ts := newTestServer(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p.GetQueueStatusFunc = func(ctx context.Context, name string) ([]*models.Queue, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		qs := sales()
		qs[0].Calls = 4
		return qs, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/api/refresh", nil)
	require.NoError(t, err)
	go func() {
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
		}
	}()

	<-started
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		q, ok := eng.Queue("sales")
		return ok && q.Calls == 4 && !eng.Status().Loading
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, eng.Status().Error)
}

func TestSummary(t *testing.T) {
	p, _, ts := newTestServer(t)
	p.GetQueueSummaryFunc = func(ctx context.Context, name string) ([]*models.QueueSummary, error) {
		return []*models.QueueSummary{{Queue: "sales", LoggedIn: 3, Available: 1}}, nil
	}

	var summary []*models.QueueSummary
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/summary", &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, 3, summary[0].LoggedIn)

	p.Disconnected = true
	var e models.ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/summary", &e))

	summary = nil
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/summary?cached=true", &summary))
	assert.Len(t, summary, 1)
}

func TestPauseReasonsAndLabels(t *testing.T) {
	_, eng, ts := newTestServer(t)
	eng.ApplyOptions(engine.Options{
		PauseReasons: []string{"Coaching"},
		StatusLabels: map[models.MemberStatus]string{models.StatusNotInUse: "Ready"},
	})

	var reasons []string
	getJSON(t, ts.URL+"/api/pause-reasons", &reasons)
	assert.Equal(t, []string{"Coaching"}, reasons)

	var labels []models.StatusLabel
	getJSON(t, ts.URL+"/api/status-labels", &labels)
	require.Len(t, labels, len(models.AllStatuses()))
	assert.Equal(t, models.StatusLabel{Status: models.StatusNotInUse, Name: "NotInUse", Label: "Ready"}, labels[1])
}

func TestConfigAndMetrics(t *testing.T) {
	_, _, ts := newTestServer(t)

	var cfg RunningConfig
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/config", &cfg))
	assert.Equal(t, 10*time.Second, cfg.RefreshInterval)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `queued_refresh_total{status="ok"} 1`)
}

func TestEngineNotInitialized(t *testing.T) {
	ts := httptest.NewServer(New(testLogger()).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/queues")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func readEvent(t *testing.T, r *bufio.Reader) models.StreamUpdate {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			var u models.StreamUpdate
			require.NoError(t, json.Unmarshal([]byte(data), &u))
			return u
		}
	}
}

func TestStreamSSE(t *testing.T) {
	p, _, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	initial := readEvent(t, r)
	assert.Equal(t, models.StreamInitial, initial.Type)
	require.Len(t, initial.Queues, 1)

	p.Emit(ami.TopicCallerJoin, &ami.CallerJoinPayload{Queue: "sales", UniqueID: "c2"})

	u := readEvent(t, r)
	assert.Equal(t, string(store.UpdateEntries), u.Type)
	assert.Equal(t, store.SourceEvent, u.Source)
	require.Len(t, u.Queues, 1)
	assert.Equal(t, 2, u.Queues[0].Calls)
}

func TestStreamWebSocket(t *testing.T) {
	_, eng, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var initial models.StreamUpdate
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, models.StreamInitial, initial.Type)

	require.NoError(t, eng.PauseMember(context.Background(), "sales", "SIP/100", "Break"))

	var u models.StreamUpdate
	require.NoError(t, conn.ReadJSON(&u))
	assert.Equal(t, string(store.UpdateMember), u.Type)
	require.Len(t, u.Queues, 1)
	assert.True(t, u.Queues[0].Members[0].Paused)
}

func TestListenAndServeUnixSocket(t *testing.T) {
	s := New(testLogger())
	sock := filepath.Join(t.TempDir(), "run", "queued.sock")

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(sock) }()

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", sock)
		},
	}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://unix/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
