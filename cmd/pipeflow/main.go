package main

import (
	"fmt"
	"os"

	"github.com/ashgrove-labs/pipeflow/cmd/pipeflow/commands"
)

var rootCmd = commands.NewRootCmd()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitCode(err))
	}
}
