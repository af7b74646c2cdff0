package engine

import (
	"github.com/grovetools/queued/config"
)

// OptionsFromConfig compiles the filters, pause reasons and status labels of
// cfg into engine options. Callbacks are left unset.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	filters, err := cfg.CompileFilters()
	if err != nil {
		return Options{}, err
	}
	return Options{
		QueueFilter:  filters.Queue,
		MemberFilter: filters.Member,
		PauseReasons: append([]string(nil), cfg.PauseReasons...),
		StatusLabels: cfg.StatusLabelMap(),
	}, nil
}

// Reload applies cfg to the running engine and notifies stream subscribers.
func (e *Engine) Reload(cfg *config.Config, file string) error {
	o, err := OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	e.ApplyOptions(o)
	e.store.BroadcastConfigReload(file)
	return nil
}
