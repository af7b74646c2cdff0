package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/pkg/models"
)

// Validate runs the semantic checks that the schema cannot express.
func (c *Config) Validate() error {
	durations := map[string]string{
		"sync.refresh_interval":  c.Sync.RefreshInterval,
		"sync.summary_interval":  c.Sync.SummaryInterval,
		"provider.timeout":       c.Provider.Timeout,
		"provider.reconnect_max": c.Provider.ReconnectMax,
	}
	for field, value := range durations {
		if err := validateDuration(field, value); err != nil {
			return err
		}
	}

	for i, reason := range c.PauseReasons {
		if strings.TrimSpace(reason) == "" {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("pause_reasons[%d] cannot be empty", i))
		}
	}

	for key := range c.StatusLabels {
		if _, ok := models.ParseMemberStatus(key); !ok {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown member status '%s' in status_labels", key)).
				WithDetail("status", key)
		}
	}

	if c.Server.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid server.listen address: %s", c.Server.Listen)).
				WithDetail("listen", c.Server.Listen)
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New(errors.ErrCodeConfigValidation, "redis.addr cannot be empty when redis is enabled")
	}

	if _, err := c.CompileFilters(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid filters")
	}

	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid duration for %s: %s", field, value)).
			WithDetail("field", field)
	}
	if d <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be positive", field)).
			WithDetail("field", field)
	}
	return nil
}

// StatusLabelMap converts the status_labels section to engine form.
// Unknown keys are skipped; Validate reports them.
func (c *Config) StatusLabelMap() map[models.MemberStatus]string {
	if len(c.StatusLabels) == 0 {
		return nil
	}
	labels := make(map[models.MemberStatus]string, len(c.StatusLabels))
	for key, label := range c.StatusLabels {
		status, ok := models.ParseMemberStatus(key)
		if !ok {
			continue
		}
		labels[status] = label
	}
	return labels
}
