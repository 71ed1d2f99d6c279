// Package commands implements the pipeflow CLI's subcommands: a
// cmd/<name>/commands layout where each RunE returns a plain error and
// main.go maps it to a process exit code, rather than each command
// calling os.Exit directly.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the pipeflow root command with every subcommand
// wired in (spec §6 external interfaces).
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipeflow",
		Short: "Run and inspect modular dataflow pipelines",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newListTypesCmd())

	return root
}
