package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/config"
	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/internal/daemon/collector"
	"github.com/grovetools/queued/internal/daemon/engine"
	"github.com/grovetools/queued/internal/daemon/metrics"
	"github.com/grovetools/queued/internal/daemon/pidfile"
	"github.com/grovetools/queued/internal/daemon/publish"
	"github.com/grovetools/queued/internal/daemon/server"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/internal/daemon/watcher"
	"github.com/grovetools/queued/logging"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/ami/gateway"
	"github.com/grovetools/queued/pkg/models"
	"github.com/grovetools/queued/pkg/paths"
	"github.com/grovetools/queued/pkg/process"
	"github.com/grovetools/queued/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const stopTimeout = 10 * time.Second

// NewStartCmd returns the command that runs the daemon in the foreground.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long: `Start the queued daemon in foreground mode.

The daemon connects to the AMI gateway, keeps the queue mirror in sync and
serves it over a unix socket (and optionally TCP). Configuration files are
watched and filters, pause reasons and status labels are reloaded live.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), cli.GetOptions(cmd))
		},
	}
}

func runDaemon(ctx context.Context, opts cli.CommandOptions) error {
	logger := logging.NewLogger("daemon")
	if opts.Verbose {
		logger.Logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := cli.LoadConfig(opts)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create state directories: %w", err)
	}

	pidPath := paths.PidFilePath()
	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	engOpts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	var provider ami.Provider
	var gw *gateway.Client
	if cfg.Provider.URL != "" {
		gw, err = gateway.New(gateway.OptionsFromConfig(cfg.Provider), logger.WithField("part", "gateway"))
		if err != nil {
			return err
		}
		provider = gw
	} else {
		logger.Warn("No provider url configured; queue operations will report not connected")
	}

	st := store.New()
	m := metrics.New()
	eng := engine.New(st, provider, engOpts, m, logger)
	defer eng.Close()

	refresh := collector.NewRefreshCollector(eng.Synchronizer(), cfg.Sync.RefreshEvery(), logger)
	if gw != nil {
		// The startup poll runs before the stream is up; catch up on every connect.
		refresh.WithTrigger(gw.Connects())
	}
	eng.Register(refresh)
	eng.Register(collector.NewSummaryCollector(eng.Synchronizer(), cfg.Sync.SummaryEvery(), logger))
	eng.Register(collector.Func(m.Name(), func(ctx context.Context) error {
		return m.Run(ctx, st, eng.Aggregator())
	}))
	if gw != nil {
		eng.Register(gw)
	}
	if cfg.Redis.Enabled {
		rc := publish.NewClient(cfg.Redis)
		defer rc.Close()
		eng.Register(publish.New(rc, cfg.Redis.Channel, st, logger.WithField("part", "redis")))
	}

	srv := server.New(logger)
	srv.SetEngine(eng)
	srv.SetMetrics(m.Handler())

	running := runningConfig(cfg)
	srv.SetRunningConfig(&running)

	if len(cfg.Sources) > 0 {
		w, err := watcher.New(cfg.Sources, watcher.DefaultDebounce, func(file string) {
			reloadConfig(opts, file, eng, srv, running, logger)
		}, logger.WithField("part", "watcher"))
		if err != nil {
			logger.WithError(err).Warn("Config watching disabled")
		} else {
			defer w.Close()
			eng.Register(collector.Func("config-watcher", w.Start))
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go eng.Start(ctx)

	if cfg.Server.Listen != "" {
		if err := srv.ListenTCP(cfg.Server.Listen); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("Received stop signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	socket := cfg.Server.Socket
	if socket == "" {
		socket = paths.SocketPath()
	}
	logger.WithFields(logrus.Fields{
		"pid":     os.Getpid(),
		"version": version.Version,
		"sources": cfg.Sources,
	}).Info("Starting daemon")
	if err := srv.ListenAndServe(socket); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runningConfig(cfg *config.Config) models.RunningConfig {
	rc := models.RunningConfig{
		RefreshInterval: cfg.Sync.RefreshEvery(),
		SummaryInterval: cfg.Sync.SummaryEvery(),
		ProviderURL:     cfg.Provider.URL,
		ConfigFiles:     cfg.Sources,
		Version:         version.Version,
		StartedAt:       time.Now(),
	}
	if cfg.Redis.Enabled {
		rc.RedisChannel = cfg.Redis.Channel
	}
	return rc
}

// reloadConfig re-reads configuration after file changed on disk. Only
// filters, pause reasons and status labels take effect without a restart.
func reloadConfig(opts cli.CommandOptions, file string, eng *engine.Engine, srv *server.Server, running models.RunningConfig, logger *logrus.Entry) {
	logger = logger.WithField("file", file)
	cfg, err := cli.LoadConfig(opts)
	if err != nil {
		logger.WithError(err).Error("Config reload failed; keeping previous configuration")
		return
	}
	if err := eng.Reload(cfg, file); err != nil {
		logger.WithError(err).Error("Config reload rejected")
		return
	}
	running.ConfigFiles = cfg.Sources
	running.ReloadedAt = time.Now()
	srv.SetRunningConfig(&running)
	logger.Info("Configuration reloaded")
}

// NewStopCmd returns the command that stops a running daemon.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if !running {
				pretty.Info("Daemon is not running")
				return nil
			}

			if err := process.Terminate(pid, stopTimeout); err != nil {
				return err
			}
			pretty.Success(fmt.Sprintf("Stopped daemon (PID %d)", pid))
			return nil
		},
	}
}

// NewStatusCmd returns the command that reports daemon and sync status.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}
			if !running {
				return errors.DaemonNotRunning(paths.PidFilePath())
			}

			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if opts.JSONOutput {
				return printJSON(cmd, struct {
					PID int `json:"pid"`
					*models.SyncStatus
				}{pid, status})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running (PID: %d)\nSocket: %s\n", pid, paths.SocketPath())
			if !status.LastRefresh.IsZero() {
				fmt.Fprintf(out, "Last refresh: %s\n", status.LastRefresh.Format(time.RFC3339))
			}
			if status.Loading {
				fmt.Fprintln(out, "Refresh in progress")
			}
			if status.Error != "" {
				fmt.Fprintf(out, "Last error: %s\n", status.Error)
			}
			return nil
		},
	}
}
