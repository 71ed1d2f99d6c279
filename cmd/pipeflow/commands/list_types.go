package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func newListTypesCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list-types",
		Short: "List every registered module type, built-in and loaded from --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListTypes(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory tree of pipeline descriptors to scan")

	return cmd
}

func runListTypes(dir string) error {
	e := newEngine()

	if dir != "" {
		if err := e.LoadDirectory(os.DirFS(dir), "."); err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
	}

	types := e.Registry().KnownTypes()
	sort.Strings(types)
	for _, t := range types {
		fmt.Println(t)
	}
	return nil
}
