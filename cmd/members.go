package cmd

import (
	"fmt"
	"strconv"

	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/logging"
	"github.com/grovetools/queued/pkg/daemon"
	"github.com/grovetools/queued/pkg/models"
	"github.com/spf13/cobra"
)

// runMember sends a member command to the daemon and reports the result.
func runMember(cmd *cobra.Command, op string, req models.MemberRequest) error {
	client, err := dial(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Member(cmd.Context(), op, req)
	if err != nil {
		return err
	}
	if cli.GetOptions(cmd).JSONOutput {
		return printJSON(cmd, resp)
	}

	pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
	pretty.Success(fmt.Sprintf("%s %s on %s", op, req.Interface, req.Queue))
	if m := resp.Member; m != nil {
		pretty.Field("paused", m.Paused)
		pretty.Field("penalty", m.Penalty)
		pretty.Field("status", m.Status)
	} else if op == daemon.OpAdd {
		pretty.Info("The member appears after the next refresh")
	}
	return nil
}

// NewPauseCmd pauses a member.
func NewPauseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pause <queue> <interface>",
		Short: "Pause a queue member",
		Args:  cobra.ExactArgs(2),
		Example: `  queued pause sales PJSIP/1001 --reason Lunch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			return runMember(cmd, daemon.OpPause, models.MemberRequest{Queue: args[0], Interface: args[1], Reason: reason})
		},
	}
	cmd.Flags().StringP("reason", "r", "", "Pause reason (see 'queued pause-reasons')")
	return cmd
}

// NewUnpauseCmd unpauses a member.
func NewUnpauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpause <queue> <interface>",
		Short: "Unpause a queue member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMember(cmd, daemon.OpUnpause, models.MemberRequest{Queue: args[0], Interface: args[1]})
		},
	}
}

// NewAddCmd adds a dynamic member. The member appears in the mirror after
// the next refresh or member status event.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <queue> <interface>",
		Short: "Add a member to a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.MemberRequest{Queue: args[0], Interface: args[1]}
			req.Penalty, _ = cmd.Flags().GetInt("penalty")
			req.Paused, _ = cmd.Flags().GetBool("paused")
			req.MemberName, _ = cmd.Flags().GetString("name")
			req.StateInterface, _ = cmd.Flags().GetString("state-interface")
			req.Reason, _ = cmd.Flags().GetString("reason")
			return runMember(cmd, daemon.OpAdd, req)
		},
	}
	cmd.Flags().Int("penalty", 0, "Routing penalty")
	cmd.Flags().Bool("paused", false, "Add the member paused")
	cmd.Flags().String("name", "", "Member display name")
	cmd.Flags().String("state-interface", "", "Device used for member state")
	cmd.Flags().String("reason", "", "Pause reason when added paused")
	return cmd
}

// NewRemoveCmd removes a member.
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <queue> <interface>",
		Short: "Remove a member from a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMember(cmd, daemon.OpRemove, models.MemberRequest{Queue: args[0], Interface: args[1]})
		},
	}
}

// NewPenaltyCmd sets a member's routing penalty.
func NewPenaltyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "penalty <queue> <interface> <value>",
		Short: "Set a member's routing penalty",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			penalty, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.InvalidInput(fmt.Sprintf("penalty must be an integer, got %q", args[2]))
			}
			return runMember(cmd, daemon.OpPenalty, models.MemberRequest{Queue: args[0], Interface: args[1], Penalty: penalty})
		},
	}
}
