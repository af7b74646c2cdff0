package cmd

import (
	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the queued command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("queued", "Contact-center queue state daemon and client")
	root.Long = `queued mirrors the queues of a telephony switch: members, waiting callers
and rollup metrics. 'queued start' runs the daemon; the other commands talk
to it over its unix socket.`

	info := version.GetInfo()
	cli.SetVersionTemplate(root, info)

	root.AddCommand(
		NewStartCmd(),
		NewStopCmd(),
		NewStatusCmd(),
		NewLogsCmd(),
		NewQueuesCmd(),
		NewRollupsCmd(),
		NewSummaryCmd(),
		NewRefreshCmd(),
		NewPauseCmd(),
		NewUnpauseCmd(),
		NewAddCmd(),
		NewRemoveCmd(),
		NewPenaltyCmd(),
		NewPauseReasonsCmd(),
		NewStatusLabelsCmd(),
		NewWatchCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("queued", info),
	)

	cli.ApplyStyledHelpRecursive(root)
	return root
}
