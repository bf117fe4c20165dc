package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root snmpsim command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snmpsim",
		Short: "Simulate live agents from recorded snapshots",
		Long: `snmpsim makes a static corpus of recorded snapshots behave like a live,
time-evolving device: responses are delayed with configurable jitter, and
the snapshot representing "now" rotates per monitored subtree.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newDelayCmd(),
		newRecordCmd(),
		newPlayCmd(),
	)

	return root
}
