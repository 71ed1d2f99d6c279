package engine

import (
	"context"
	"time"

	"github.com/ashgrove-labs/pipeflow/introspect"
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/state"
)

// Pipeline is the public handle to a compiled, instantiated workflow
// (spec §6). It wraps the underlying module.Module so callers never
// touch the module package directly.
type Pipeline struct {
	m module.Module
}

// InputPorts is pipeline.inputs (spec §6: "pipeline.inputs.set(port,
// value) / get(port)").
type InputPorts struct {
	bag *item.InputBag
}

// Set writes a single workflow input port.
func (p *InputPorts) Set(port string, value any) error {
	return p.bag.SetValues(map[string]any{port: value})
}

// Get reads a single workflow input port's current value.
func (p *InputPorts) Get(port string) (value any, present bool, err error) {
	it, err := p.bag.Get(port)
	if err != nil {
		return nil, false, err
	}
	v, present := it.Value()
	return v, present, nil
}

// OutputPorts is pipeline.outputs (spec §6: "pipeline.outputs.get(port)").
type OutputPorts struct {
	bag *item.OutputBag
}

// Get reads a single workflow output port's current value.
func (p *OutputPorts) Get(port string) (value any, present bool, err error) {
	it, err := p.bag.Get(port)
	if err != nil {
		return nil, false, err
	}
	v, present := it.Value()
	return v, present, nil
}

// Inputs exposes the workflow's input ports.
func (p *Pipeline) Inputs() *InputPorts {
	return &InputPorts{bag: p.m.Inputs()}
}

// Outputs exposes the workflow's output ports.
func (p *Pipeline) Outputs() *OutputPorts {
	return &OutputPorts{bag: p.m.Outputs()}
}

// State reports the workflow's current lifecycle state.
func (p *Pipeline) State() state.State {
	return p.m.State()
}

// ToDetails snapshots the workflow module itself (spec §4.9
// module.to_details()).
func (p *Pipeline) ToDetails() introspect.ModuleDetails {
	return introspect.Module(p.m)
}

// StructureDetails snapshots the workflow's compiled structure (spec
// §4.9 pipeline.structure_details()). ok is false if the underlying
// module somehow isn't a Pipeline (never the case for a workflow
// produced by CreateWorkflow).
func (p *Pipeline) StructureDetails() (details introspect.StructureDetails, ok bool) {
	pl, isPipeline := p.m.(*module.Pipeline)
	if !isPipeline {
		return introspect.StructureDetails{}, false
	}
	return introspect.Structure(pl.Structure()), true
}

// RunOption configures one Process call (spec §6: "pipeline.process
// (executor?, cancel?) → Result").
type RunOption func(*runConfig)

type runConfig struct {
	executor module.Executor
	timeout  time.Duration
}

// WithExecutor sets the executor for this run. Process installs it on
// the workflow via module.Pipeline.SetExecutor and does not restore the
// previous one afterwards, so later Process calls without WithExecutor
// keep using it. The executor field is shared mutable state, so a
// concurrent Process call during this one would race; callers must not
// run two Process calls on the same Pipeline concurrently (spec §5:
// a pipeline run is driven by a single coordinator).
func WithExecutor(exec module.Executor) RunOption {
	return func(c *runConfig) { c.executor = exec }
}

// WithTimeout bounds the run's total wall-clock duration.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.timeout = d }
}

// Result is the outcome of one Process call.
type Result struct {
	Err      error
	Duration time.Duration
}

// Process drives the workflow through RunStages once (spec §4.8).
func (p *Pipeline) Process(ctx context.Context, opts ...RunOption) Result {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	pl, isPipeline := p.m.(*module.Pipeline)
	if isPipeline && cfg.executor != nil {
		pl.SetExecutor(cfg.executor)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.m.Process(ctx)
	return Result{Err: err, Duration: time.Since(start)}
}
