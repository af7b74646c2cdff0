package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the queued configuration file.
type Config struct {
	Provider     ProviderConfig    `yaml:"provider" toml:"provider" json:"provider" jsonschema:"description=Connection to the AMI gateway"`
	Sync         SyncConfig        `yaml:"sync" toml:"sync" json:"sync" jsonschema:"description=Polling intervals"`
	Filters      FiltersConfig     `yaml:"filters,omitempty" toml:"filters,omitempty" json:"filters" jsonschema:"description=Which queues and members are mirrored"`
	PauseReasons []string          `yaml:"pause_reasons,omitempty" toml:"pause_reasons,omitempty" json:"pause_reasons,omitempty" jsonschema:"description=Pause reasons offered to clients"`
	StatusLabels map[string]string `yaml:"status_labels,omitempty" toml:"status_labels,omitempty" json:"status_labels,omitempty" jsonschema:"description=Display labels keyed by member status name or number"`
	Server       ServerConfig      `yaml:"server" toml:"server" json:"server" jsonschema:"description=Daemon API listeners"`
	Redis        RedisConfig       `yaml:"redis,omitempty" toml:"redis,omitempty" json:"redis" jsonschema:"description=Optional fan-out of store updates to Redis pub/sub"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`

	// Sources lists the files this configuration was loaded from, in merge order.
	Sources []string `yaml:"-" toml:"-" json:"-" jsonschema:"-"`
}

// ProviderConfig configures the gateway provider.
type ProviderConfig struct {
	URL          string `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty" jsonschema:"description=Base URL of the AMI gateway,pattern=^(https?|wss?)://"`
	Token        string `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty" jsonschema:"description=Bearer token sent to the gateway"`
	Timeout      string `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Per-request timeout,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	ReconnectMax string `yaml:"reconnect_max,omitempty" toml:"reconnect_max,omitempty" json:"reconnect_max,omitempty" jsonschema:"description=Upper bound of the event stream reconnect backoff,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	ServerID     int    `yaml:"server_id,omitempty" toml:"server_id,omitempty" json:"server_id,omitempty" jsonschema:"description=Identifier stamped on queues from this switch,minimum=0"`
}

// SyncConfig configures the periodic collectors.
type SyncConfig struct {
	RefreshInterval string `yaml:"refresh_interval,omitempty" toml:"refresh_interval,omitempty" json:"refresh_interval,omitempty" jsonschema:"description=How often full queue status is pulled,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
	SummaryInterval string `yaml:"summary_interval,omitempty" toml:"summary_interval,omitempty" json:"summary_interval,omitempty" jsonschema:"description=How often the queue summary is pulled,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
}

// FiltersConfig selects queues and members. Glob lists accept a leading
// "!" for exclusions. Expressions are CEL and must evaluate to a bool.
type FiltersConfig struct {
	Queues     []string `yaml:"queues,omitempty" toml:"queues,omitempty" json:"queues,omitempty" jsonschema:"description=Glob patterns matched against queue names"`
	Members    []string `yaml:"members,omitempty" toml:"members,omitempty" json:"members,omitempty" jsonschema:"description=Glob patterns matched against member interfaces"`
	QueueExpr  string   `yaml:"queue_expr,omitempty" toml:"queue_expr,omitempty" json:"queue_expr,omitempty" jsonschema:"description=CEL expression over a queue"`
	MemberExpr string   `yaml:"member_expr,omitempty" toml:"member_expr,omitempty" json:"member_expr,omitempty" jsonschema:"description=CEL expression over a member"`
}

// ServerConfig configures the daemon API.
type ServerConfig struct {
	Socket string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Unix socket path (defaults to the runtime directory)"`
	Listen string `yaml:"listen,omitempty" toml:"listen,omitempty" json:"listen,omitempty" jsonschema:"description=Optional TCP address such as 127.0.0.1:9470"`
}

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Addr     string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty" jsonschema:"description=host:port of the Redis server"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" toml:"db,omitempty" json:"db,omitempty" jsonschema:"minimum=0,maximum=15"`
	Channel  string `yaml:"channel,omitempty" toml:"channel,omitempty" json:"channel,omitempty" jsonschema:"description=Pub/sub channel updates are published on"`
}

// Defaults
const (
	DefaultRefreshInterval = "10s"
	DefaultSummaryInterval = "30s"
	DefaultTimeout         = "10s"
	DefaultReconnectMax    = "30s"
	DefaultRedisChannel    = "queued:updates"
)

// SetDefaults fills in unset values.
func (c *Config) SetDefaults() {
	if c.Sync.RefreshInterval == "" {
		c.Sync.RefreshInterval = DefaultRefreshInterval
	}
	if c.Sync.SummaryInterval == "" {
		c.Sync.SummaryInterval = DefaultSummaryInterval
	}
	if c.Provider.Timeout == "" {
		c.Provider.Timeout = DefaultTimeout
	}
	if c.Provider.ReconnectMax == "" {
		c.Provider.ReconnectMax = DefaultReconnectMax
	}
	if c.Redis.Enabled && c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// RefreshEvery returns the parsed refresh interval.
func (s SyncConfig) RefreshEvery() time.Duration {
	return parseDuration(s.RefreshInterval, DefaultRefreshInterval)
}

// SummaryEvery returns the parsed summary interval.
func (s SyncConfig) SummaryEvery() time.Duration {
	return parseDuration(s.SummaryInterval, DefaultSummaryInterval)
}

// RequestTimeout returns the parsed per-request timeout.
func (p ProviderConfig) RequestTimeout() time.Duration {
	return parseDuration(p.Timeout, DefaultTimeout)
}

// ReconnectBackoffMax returns the parsed reconnect backoff ceiling.
func (p ProviderConfig) ReconnectBackoffMax() time.Duration {
	return parseDuration(p.ReconnectMax, DefaultReconnectMax)
}

func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// UnmarshalExtension decodes the extension section stored under key into
// target, using yaml tags. A missing key leaves target untouched.
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
