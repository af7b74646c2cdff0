package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the daemon log",
		Long: `Prints today's daemon log file. JSON log lines (format preset "json")
are rendered as text unless --json is given.`,
		Example: `  # Follow the daemon log
  queued logs -f

  # Last 100 lines of a previous day
  queued logs --tail 100 --date 2026-03-14`,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("tail", "n", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().String("date", "", "Day of the log file to read, as YYYY-MM-DD (default: today)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	date, _ := cmd.Flags().GetString("date")

	day := time.Now()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
		day = parsed
	}

	var logCfg logging.Config
	if cfg, err := cli.LoadConfig(opts); err == nil {
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	} else if opts.ConfigFile != "" {
		return err
	}

	path := logging.LogFilePath("daemon", logCfg, day)
	if path == "" {
		return fmt.Errorf("no log directory available")
	}
	if _, err := os.Stat(path); err != nil && !follow {
		return fmt.Errorf("no log file at %s", path)
	}

	out := cmd.OutOrStdout()
	lines, stop, err := tailLog(path, follow)
	if err != nil {
		return err
	}
	defer stop()

	emit := func(line string) {
		if opts.JSONOutput {
			fmt.Fprintln(out, line)
		} else {
			fmt.Fprintln(out, formatLogLine(line))
		}
	}

	if follow {
		for line := range lines {
			emit(line)
		}
		return nil
	}

	var buffered []string
	for line := range lines {
		buffered = append(buffered, line)
		if tailLines >= 0 && len(buffered) > tailLines {
			buffered = buffered[1:]
		}
	}
	for _, line := range buffered {
		emit(line)
	}
	return nil
}

// tailLog streams the lines of path. Without follow the channel is closed
// at end of file; with follow it waits for the file to appear and reopens
// it across rotation.
func tailLog(path string, follow bool) (<-chan string, func(), error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: !follow,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	lines := make(chan string, 100)
	go func() {
		defer close(lines)
		for line := range t.Lines {
			if line.Err != nil {
				continue
			}
			lines <- line.Text
		}
	}()
	stop := func() {
		_ = t.Stop()
		t.Cleanup()
	}
	return lines, stop, nil
}

// formatLogLine renders a JSON log line as "15:04:05 LEVEL [component] msg".
// Other lines are returned unchanged.
func formatLogLine(line string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	p := cli.DefaultPalette
	var levelColor lipgloss.Color
	switch level {
	case "error", "fatal", "panic":
		levelColor = p.Red
	case "warning":
		levelColor = p.Yellow
	case "debug", "trace":
		levelColor = p.Violet
	default:
		levelColor = p.Cyan
	}
	levelStr := lipgloss.NewStyle().Foreground(levelColor).Render(fmt.Sprintf("%-5.5s", level))

	s := fmt.Sprintf("%s %s", p.Muted.Render(timeStr), levelStr)
	if component != "" {
		s += " " + lipgloss.NewStyle().Foreground(p.Blue).Render("["+component+"]")
	}
	s += " " + msg

	for _, key := range []string{"queue", "interface", "topic", "error"} {
		if v, ok := entry[key]; ok {
			s += " " + p.Muted.Render(fmt.Sprintf("%s=%v", key, v))
		}
	}
	return s
}
