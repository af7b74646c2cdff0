package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/grovetools/queued/pkg/ami"
)

// Run keeps the event stream connected until ctx is cancelled, reconnecting
// with capped exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// The stream was up; start over from the shortest delay.
			backoff = initialBackoff
		}
		c.logger.WithError(err).WithField("retry_in", backoff).Warn("Gateway event stream disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}
	}
}

// stream connects once and publishes events until the connection drops.
// A nil error means the connection was established before it dropped.
func (c *Client) stream(ctx context.Context) error {
	u := c.endpoint("/events")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	header := http.Header{}
	c.authorize(header)
	conn, _, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.WithField("url", u.String()).Info("Gateway event stream connected")
	select {
	case c.connects <- struct{}{}:
	default:
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.WithError(err).Debug("Gateway event stream read failed")
			}
			return nil
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		c.logger.WithError(err).Debug("Skipping malformed gateway message")
		return
	}
	name, _ := fields["Event"].(string)
	if !ami.IsTopic(name) {
		return
	}

	ev, err := ami.DecodeEvent(ami.Topic(name), fields)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to decode gateway event")
		return
	}
	if ev.ServerID == 0 {
		ev.ServerID = c.opts.ServerID
	}
	c.Publish(ev)
}
