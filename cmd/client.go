package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/pkg/daemon"
	"github.com/grovetools/queued/pkg/models"
	"github.com/grovetools/queued/pkg/paths"
	"github.com/spf13/cobra"
)

// dial connects to the daemon socket named in the configuration, or the
// default socket when none is configured.
func dial(cmd *cobra.Command) (daemon.Client, error) {
	socket := paths.SocketPath()
	if cfg, err := cli.LoadConfig(cli.GetOptions(cmd)); err == nil && cfg.Server.Socket != "" {
		socket = cfg.Server.Socket
	}
	return daemon.NewForSocket(socket)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// NewQueuesCmd lists queues, or shows one queue's members and callers.
func NewQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues [name]",
		Short: "List mirrored queues",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			jsonOut := cli.GetOptions(cmd).JSONOutput

			if len(args) == 1 {
				q, err := client.Queue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd, q)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderQueue(q))
				return nil
			}

			queues, err := client.Queues(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, queues)
			}
			if len(queues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No queues mirrored yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQueues(queues))
			return nil
		},
	}
}

func renderQueues(queues []*models.Queue) string {
	rows := make([][]string, 0, len(queues))
	for _, q := range queues {
		available := 0
		for _, m := range q.Members {
			if m.Available() {
				available++
			}
		}
		rows = append(rows, []string{
			q.Name,
			q.Strategy,
			strconv.Itoa(q.Calls),
			fmt.Sprintf("%d/%d", available, len(q.Members)),
			strconv.Itoa(q.Completed),
			strconv.Itoa(q.Abandoned),
			fmt.Sprintf("%.1f%%", q.ServiceLevelPerf),
		})
	}
	return cli.SimpleTable([]string{"QUEUE", "STRATEGY", "CALLERS", "AVAILABLE", "COMPLETED", "ABANDONED", "SL"}, rows)
}

func renderQueue(q *models.Queue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) callers=%d completed=%d abandoned=%d sl=%.1f%%\n",
		q.Name, q.Strategy, q.Calls, q.Completed, q.Abandoned, q.ServiceLevelPerf)

	if len(q.Members) > 0 {
		rows := make([][]string, 0, len(q.Members))
		for _, m := range q.Members {
			label := m.StatusLabel
			if label == "" {
				label = m.Status.String()
			}
			paused := ""
			if m.Paused {
				paused = "yes"
				if m.PausedReason != "" {
					paused += " (" + m.PausedReason + ")"
				}
			}
			rows = append(rows, []string{m.Interface, m.Name, label, paused, strconv.Itoa(m.Penalty), strconv.Itoa(m.CallsTaken)})
		}
		b.WriteString(cli.SimpleTable([]string{"INTERFACE", "NAME", "STATUS", "PAUSED", "PENALTY", "CALLS"}, rows))
		b.WriteString("\n")
	}

	if len(q.Entries) > 0 {
		rows := make([][]string, 0, len(q.Entries))
		for _, e := range q.Entries {
			rows = append(rows, []string{strconv.Itoa(e.Position), e.CallerIDNum, e.CallerIDName, (time.Duration(e.Wait) * time.Second).String()})
		}
		b.WriteString(cli.SimpleTable([]string{"POS", "CALLER", "NAME", "WAIT"}, rows))
		b.WriteString("\n")
	}
	return b.String()
}

// NewRollupsCmd prints the cross-queue rollups.
func NewRollupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollups",
		Short: "Show totals across all queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			r, err := client.Rollups(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, r)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Callers:        %d\n", r.TotalCallers)
			fmt.Fprintf(out, "Available:      %d\n", r.TotalAvailable)
			fmt.Fprintf(out, "Paused:         %d\n", r.TotalPaused)
			if r.LongestWait.Queue != "" {
				fmt.Fprintf(out, "Longest wait:   %ds (%s)\n", r.LongestWait.Wait, r.LongestWait.Queue)
			} else {
				fmt.Fprintln(out, "Longest wait:   -")
			}
			fmt.Fprintf(out, "Service level:  %.1f%%\n", r.OverallServiceLevel)
			return nil
		},
	}
}

// NewSummaryCmd prints the per-queue summary.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch the queue summary from the switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, _ := cmd.Flags().GetBool("cached")
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Summary(cmd.Context(), cached)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, summary)
			}
			rows := make([][]string, 0, len(summary))
			for _, s := range summary {
				rows = append(rows, []string{
					s.Queue,
					strconv.Itoa(s.LoggedIn),
					strconv.Itoa(s.Available),
					strconv.Itoa(s.Callers),
					strconv.Itoa(s.HoldTime),
					strconv.Itoa(s.LongestHoldTime),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SimpleTable([]string{"QUEUE", "LOGGED IN", "AVAILABLE", "CALLERS", "HOLD", "LONGEST"}, rows))
			return nil
		},
	}
	cmd.Flags().Bool("cached", false, "Show the last summary fetched by the daemon")
	return cmd
}

// NewRefreshCmd asks the daemon for an immediate refresh.
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [queue]",
		Short: "Refresh all queues, or one queue, from the switch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			queue := ""
			if len(args) == 1 {
				queue = args[0]
			}
			resp, err := client.Refresh(cmd.Context(), queue)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, resp)
			}
			if resp.Status.Error != "" {
				return fmt.Errorf("refresh failed: %s", resp.Status.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed; %d queues mirrored\n", resp.Queues)
			return nil
		},
	}
}

// NewPauseReasonsCmd lists the configured pause reasons and status labels.
func NewPauseReasonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause-reasons",
		Short: "List the pause reasons offered to agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			reasons, err := client.PauseReasons(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, reasons)
			}
			for _, r := range reasons {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

// NewStatusLabelsCmd lists the member status display labels.
func NewStatusLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status-labels",
		Short: "List member status display labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			labels, err := client.StatusLabels(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, labels)
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i].Status < labels[j].Status })
			rows := make([][]string, 0, len(labels))
			for _, l := range labels {
				rows = append(rows, []string{strconv.Itoa(int(l.Status)), l.Name, l.Label})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SimpleTable([]string{"STATUS", "NAME", "LABEL"}, rows))
			return nil
		},
	}
}

// NewWatchCmd prints store updates as they are streamed by the daemon.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print queue updates as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			updates, err := client.StreamUpdates(cmd.Context())
			if err != nil {
				return err
			}
			jsonOut := cli.GetOptions(cmd).JSONOutput
			out := cmd.OutOrStdout()
			for u := range updates {
				if jsonOut {
					data, err := json.Marshal(u)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
					continue
				}
				fmt.Fprintln(out, describeUpdate(u))
			}
			cli.GetLogger(cmd).Debug("Update stream closed")
			return nil
		},
	}
}

func describeUpdate(u models.StreamUpdate) string {
	p := cli.DefaultPalette
	stamp := u.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	head := fmt.Sprintf("%s v%d %s", p.Muted.Render(stamp.Format("15:04:05")), u.Version, u.Type)
	if u.Source != "" {
		head += "/" + u.Source
	}
	switch {
	case u.ConfigFile != "":
		return head + " " + u.ConfigFile
	case len(u.Names) > 0:
		return head + " " + strings.Join(u.Names, ",")
	default:
		return head
	}
}
