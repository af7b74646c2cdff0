package cmd

import (
	"fmt"

	"github.com/grovetools/queued/cli"
	"github.com/grovetools/queued/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by queued.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
	Socket    string `json:"socket"`
	PidFile   string `json:"pid_file"`
}

// NewPathsCmd returns the command printing the paths queued uses.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by queued",
		Long: `Print the XDG-compliant paths used by queued.

- config_dir: global queued.yml
- state_dir: pid file and logs
- log_dir: daemon log files
- socket: daemon API unix socket`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    paths.LogDir(),
				Socket:    paths.SocketPath(),
				PidFile:   paths.PidFilePath(),
			}
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(cmd, output)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config_dir: %s\n", output.ConfigDir)
			fmt.Fprintf(out, "state_dir:  %s\n", output.StateDir)
			fmt.Fprintf(out, "log_dir:    %s\n", output.LogDir)
			fmt.Fprintf(out, "socket:     %s\n", output.Socket)
			fmt.Fprintf(out, "pid_file:   %s\n", output.PidFile)
			return nil
		},
	}
}
