// Package gateway implements ami.Provider against an AMI gateway that
// exposes queue actions as JSON over HTTP and switch events over a websocket.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/queued/config"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

const initialBackoff = 500 * time.Millisecond

// Options configures a gateway Client.
type Options struct {
	URL          string
	Token        string
	Timeout      time.Duration
	ReconnectMax time.Duration
	ServerID     int
}

// OptionsFromConfig converts the provider config section.
func OptionsFromConfig(cfg config.ProviderConfig) Options {
	return Options{
		URL:          cfg.URL,
		Token:        cfg.Token,
		Timeout:      cfg.RequestTimeout(),
		ReconnectMax: cfg.ReconnectBackoffMax(),
		ServerID:     cfg.ServerID,
	}
}

// RemoteError is a non-2xx answer from the gateway. Its message is the
// gateway's error text, unmodified.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string { return e.Message }

// Client talks to the gateway. It is connected while its event websocket
// is up; Run keeps that connection alive.
type Client struct {
	ami.Bus

	opts      Options
	base      *url.URL
	http      *http.Client
	dialer    *websocket.Dialer
	logger    *logrus.Entry
	connected atomic.Bool
	connects  chan struct{}
}

// New creates a Client. The event stream is not opened until Run.
func New(opts Options, logger *logrus.Entry) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid gateway url: %w", err)
	}
	switch base.Scheme {
	case "ws":
		base.Scheme = "http"
	case "wss":
		base.Scheme = "https"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30 * time.Second
	}

	return &Client{
		opts:   opts,
		base:   base,
		http:   &http.Client{Timeout: opts.Timeout},
		dialer: &websocket.Dialer{HandshakeTimeout: opts.Timeout},
		logger:   logger,
		connects: make(chan struct{}, 1),
	}, nil
}

// Name implements collector.Collector.
func (c *Client) Name() string { return "gateway-events" }

// Connects delivers a signal each time the event stream comes up. Signals
// coalesce while nobody is receiving.
func (c *Client) Connects() <-chan struct{} { return c.connects }

// IsConnected reports whether the event stream is currently up.
func (c *Client) IsConnected() bool { return c.connected.Load() }

func (c *Client) GetQueueStatus(ctx context.Context, name string) ([]*models.Queue, error) {
	var queues []*models.Queue
	if err := c.get(ctx, "/queues/status", name, &queues); err != nil {
		return nil, err
	}
	for _, q := range queues {
		if q.ServerID == 0 {
			q.ServerID = c.opts.ServerID
		}
	}
	return queues, nil
}

func (c *Client) GetQueueSummary(ctx context.Context, name string) ([]*models.QueueSummary, error) {
	var summary []*models.QueueSummary
	if err := c.get(ctx, "/queues/summary", name, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

type memberAction struct {
	Queue     string `json:"queue"`
	Interface string `json:"interface"`
	Paused    *bool  `json:"paused,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Penalty   *int   `json:"penalty,omitempty"`
}

type addAction struct {
	Queue     string `json:"queue"`
	Interface string `json:"interface"`
	ami.AddMemberOptions
}

func (c *Client) QueuePause(ctx context.Context, queue, iface string, paused bool, reason string) error {
	return c.post(ctx, "/queues/pause", memberAction{Queue: queue, Interface: iface, Paused: &paused, Reason: reason})
}

func (c *Client) QueueAdd(ctx context.Context, queue, iface string, opts *ami.AddMemberOptions) error {
	action := addAction{Queue: queue, Interface: iface}
	if opts != nil {
		action.AddMemberOptions = *opts
	}
	return c.post(ctx, "/queues/add", action)
}

func (c *Client) QueueRemove(ctx context.Context, queue, iface string) error {
	return c.post(ctx, "/queues/remove", memberAction{Queue: queue, Interface: iface})
}

func (c *Client) QueuePenalty(ctx context.Context, queue, iface string, penalty int) error {
	return c.post(ctx, "/queues/penalty", memberAction{Queue: queue, Interface: iface, Penalty: &penalty})
}

func (c *Client) get(ctx context.Context, path, queue string, out interface{}) error {
	u := c.endpoint(path)
	if queue != "" {
		u.RawQuery = url.Values{"queue": {queue}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path).String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	c.authorize(req.Header)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return &RemoteError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return &u
}

func (c *Client) authorize(h http.Header) {
	if c.opts.Token != "" {
		h.Set("Authorization", "Bearer "+c.opts.Token)
	}
}

var _ ami.Provider = (*Client)(nil)
