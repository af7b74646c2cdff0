package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/pkg/models"
)

// socketBaseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const socketBaseURL = "http://unix"

// RemoteClient implements Client by calling the daemon's HTTP API.
type RemoteClient struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
}

// NewRemoteClient creates a RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) *RemoteClient {
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socketPath)
	}
	transport := &http.Transport{
		DialContext:     dial,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &RemoteClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		// No timeout for streaming
		streamClient: &http.Client{Transport: &http.Transport{DialContext: dial}},
		baseURL:      socketBaseURL,
	}
}

// NewRemoteClientURL creates a RemoteClient for a daemon listening on TCP.
func NewRemoteClientURL(baseURL string) *RemoteClient {
	return &RemoteClient{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		baseURL:      strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an API error body back into a coded error.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e models.ErrorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Code != "" {
		return errors.New(errors.ErrorCode(e.Code), e.Error).WithDetail("status", resp.StatusCode)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = fmt.Sprintf("daemon returned status %d", resp.StatusCode)
	}
	return errors.New(errors.ErrCodeInternal, msg).WithDetail("status", resp.StatusCode)
}

func (c *RemoteClient) Queues(ctx context.Context) ([]*models.Queue, error) {
	var queues []*models.Queue
	if err := c.do(ctx, http.MethodGet, "/api/queues", nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

func (c *RemoteClient) Queue(ctx context.Context, name string) (*models.Queue, error) {
	var q models.Queue
	if err := c.do(ctx, http.MethodGet, "/api/queues/"+url.PathEscape(name), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *RemoteClient) Rollups(ctx context.Context) (*models.Rollups, error) {
	var r models.Rollups
	if err := c.do(ctx, http.MethodGet, "/api/rollups", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *RemoteClient) Status(ctx context.Context) (*models.SyncStatus, error) {
	var s models.SyncStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *RemoteClient) Summary(ctx context.Context, cached bool) ([]*models.QueueSummary, error) {
	path := "/api/summary"
	if cached {
		path += "?cached=true"
	}
	var summary []*models.QueueSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *RemoteClient) Refresh(ctx context.Context, queue string) (*models.RefreshResponse, error) {
	var resp models.RefreshResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh", models.RefreshRequest{Queue: queue}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RemoteClient) Member(ctx context.Context, op string, req models.MemberRequest) (*models.CommandResponse, error) {
	var resp models.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/api/members/"+op, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RemoteClient) PauseReasons(ctx context.Context) ([]string, error) {
	var reasons []string
	if err := c.do(ctx, http.MethodGet, "/api/pause-reasons", nil, &reasons); err != nil {
		return nil, err
	}
	return reasons, nil
}

func (c *RemoteClient) StatusLabels(ctx context.Context) ([]models.StatusLabel, error) {
	var labels []models.StatusLabel
	if err := c.do(ctx, http.MethodGet, "/api/status-labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

func (c *RemoteClient) RunningConfig(ctx context.Context) (*models.RunningConfig, error) {
	var cfg models.RunningConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamUpdates subscribes to real-time updates via Server-Sent Events (SSE).
// The first update carries the whole store.
func (c *RemoteClient) StreamUpdates(ctx context.Context) (<-chan models.StreamUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	ch := make(chan models.StreamUpdate, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		// Full-store updates can exceed the default 64KB token size
		scanner.Buffer(make([]byte, 0, 256*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip comments and empty lines
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}

			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			var update models.StreamUpdate
			if err := json.Unmarshal([]byte(data), &update); err != nil {
				continue // Skip malformed data
			}

			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
