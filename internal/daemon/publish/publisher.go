// Package publish fans store updates out to a Redis pub/sub channel.
package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grovetools/queued/config"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// NewClient creates a Redis client from the redis config section.
func NewClient(cfg config.RedisConfig) *redis.Client {
	opts, err := redis.ParseURL(cfg.Addr)
	if err != nil {
		opts = &redis.Options{Addr: cfg.Addr}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.MaxRetries = 3
	return redis.NewClient(opts)
}

// Publisher publishes every store update as a JSON StreamUpdate.
type Publisher struct {
	client  redis.Cmdable
	channel string
	store   *store.Store
	logger  *logrus.Entry
	now     func() time.Time
}

// New creates a Publisher for st.
func New(client redis.Cmdable, channel string, st *store.Store, logger *logrus.Entry) *Publisher {
	if channel == "" {
		channel = config.DefaultRedisChannel
	}
	return &Publisher{client: client, channel: channel, store: st, logger: logger, now: time.Now}
}

// Name implements collector.Collector.
func (p *Publisher) Name() string { return "redis-publisher" }

// Run checks the connection, then publishes store updates until ctx is
// cancelled. A failed ping is logged; publishing is still attempted.
func (p *Publisher) Run(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	if err := p.client.Ping(pingCtx).Err(); err != nil {
		p.logger.WithError(err).Warn("Redis ping failed")
	} else {
		p.logger.WithField("channel", p.channel).Info("Publishing updates to Redis")
	}
	cancel()

	ch := p.store.Subscribe()
	defer p.store.Unsubscribe(ch)
	return p.Forward(ctx, ch)
}

// Forward publishes updates read from ch until ch closes or ctx is cancelled.
func (p *Publisher) Forward(ctx context.Context, ch <-chan store.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-ch:
			if !ok {
				return nil
			}
			su := p.store.Stream(u)
			su.Time = p.now()
			if err := p.Publish(ctx, su); err != nil {
				p.logger.WithError(err).WithField("type", u.Type).Warn("Failed to publish update")
			}
		}
	}
}

// Publish sends one update to the channel.
func (p *Publisher) Publish(ctx context.Context, u models.StreamUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.client.Publish(ctx, p.channel, string(data)).Err()
}
