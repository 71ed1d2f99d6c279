package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Compile a pipeline descriptor without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
}

func runValidate(descriptorPath string) error {
	e := newEngine()

	typeName, err := loadDescriptorAsType(e.Registry(), descriptorPath)
	if err != nil {
		return err
	}

	if _, err := e.CreateWorkflow(typeName, ""); err != nil {
		return err
	}

	fmt.Printf("%s: valid\n", descriptorPath)
	return nil
}
