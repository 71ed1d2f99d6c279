package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashgrove-labs/pipeflow/engine"
	"github.com/ashgrove-labs/pipeflow/executor"
	"github.com/ashgrove-labs/pipeflow/internal/plog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	inputs   []string
	executor string
	workers  int64
	timeout  time.Duration
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <descriptor>",
		Short: "Compile a pipeline descriptor and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.inputs, "input", nil, "workflow input in key=value form, repeatable")
	cmd.Flags().StringVar(&opts.executor, "executor", "cooperative", "executor: cooperative or workerpool")
	cmd.Flags().Int64Var(&opts.workers, "workers", 4, "worker pool size, when --executor=workerpool")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall run timeout, 0 disables")

	return cmd
}

func runRun(descriptorPath string, opts runOptions) error {
	e := newEngine()

	typeName, err := loadDescriptorAsType(e.Registry(), descriptorPath)
	if err != nil {
		return err
	}

	p, err := e.CreateWorkflow(typeName, "")
	if err != nil {
		return err
	}

	inputs, err := parseInputFlags(opts.inputs)
	if err != nil {
		return err
	}
	for port, value := range inputs {
		if err := p.Inputs().Set(port, value); err != nil {
			return err
		}
	}

	runOpts := []engine.RunOption{}
	switch opts.executor {
	case "cooperative", "":
		runOpts = append(runOpts, engine.WithExecutor(executor.Cooperative{}))
	case "workerpool":
		runOpts = append(runOpts, engine.WithExecutor(executor.NewWorkerPool(opts.workers)))
	default:
		return fmt.Errorf("unknown executor %q: want cooperative or workerpool", opts.executor)
	}
	if opts.timeout > 0 {
		runOpts = append(runOpts, engine.WithTimeout(opts.timeout))
	}

	logger := plog.New("cli")
	start := time.Now()
	result := p.Process(context.Background(), runOpts...)
	if result.Err != nil {
		logger.Error().Str("descriptor", descriptorPath).Dur("elapsed", time.Since(start)).Err(result.Err).Msg("run failed")
		return result.Err
	}
	logger.Info().Str("descriptor", descriptorPath).Dur("elapsed", time.Since(start)).Msg("run completed")

	details := p.ToDetails()
	out := make(map[string]any, len(details.Outputs))
	for port, pd := range details.Outputs {
		out[port] = pd.Value
	}
	enc, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Print(string(enc))
	return nil
}

// parseInputFlags turns "port=value" strings into a port→value map,
// decoding each value as JSON (numbers become float64, bools and
// objects decode as such) and falling back to the raw string when it
// isn't valid JSON.
func parseInputFlags(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid --input %q: want key=value", kv)
		}
		port, literal := kv[:idx], kv[idx+1:]

		var v any
		if err := json.Unmarshal([]byte(literal), &v); err != nil {
			v = literal
		}
		out[port] = v
	}
	return out, nil
}
