package module

import (
	"context"

	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/ashgrove-labs/pipeflow/state"
)

// SourceKind distinguishes a child input link's origin (spec §4.5
// step 3).
type SourceKind int

const (
	SourceWorkflowInput SourceKind = iota
	SourceChildOutput
)

// LinkSource identifies where a child input's value comes from.
type LinkSource struct {
	Kind          SourceKind
	WorkflowInput string // set when Kind == SourceWorkflowInput
	ChildAlias    string // set when Kind == SourceChildOutput
	ChildPort     string // set when Kind == SourceChildOutput
}

// ChildInputLink is one resolved child-input binding (spec §4.5 step 3).
type ChildInputLink struct {
	ChildAlias string
	Port       string
	Source     LinkSource
}

// WorkflowOutputLink connects a child output to an externally exposed
// workflow output name (spec §4.5 step 2).
type WorkflowOutputLink struct {
	ExternalName string
	ChildAlias   string
	ChildPort    string
}

// Structure is a compiled pipeline: its children, their stage
// assignment, the data-flow graph, the resolved link tables C6 wires
// from, and the workflow's own port schemas (spec §4.5 "Output").
type Structure struct {
	WorkflowID           string
	Children             []Module
	ChildByAlias         map[string]Module
	Stages               [][]Module
	Edges                map[string][]string // child alias -> dependent child aliases
	WorkflowInputSchema  map[string]schema.Schema
	WorkflowOutputSchema map[string]schema.Schema
	InputLinks           []ChildInputLink
	OutputLinks          []WorkflowOutputLink
}

// Executor runs a set of ready modules to completion, uniformly for
// cooperative or worker-pool implementations (spec §4.8).
type Executor interface {
	RunAll(ctx context.Context, mods []Module) error
}

// Pipeline is a module whose compute is a sub-DAG of other modules
// (spec GLOSSARY: "Pipeline module").
type Pipeline struct {
	base
	typeName  string
	structure *Structure
	executor  Executor
}

// NewPipeline constructs a Pipeline module over a compiled structure,
// wiring its value propagation (spec §4.6) immediately: a Pipeline
// value is always fully wired from construction, and "reinstantiation
// discards previous listener bindings" simply falls out of building a
// fresh Pipeline (and therefore fresh items) per compile. address is
// this module's full dotted path; pass alias itself for a workflow
// root.
func NewPipeline(alias, address, typeName, doc string, structure *Structure, exec Executor) (*Pipeline, error) {
	p := &Pipeline{
		base:      newBase(alias, address, doc, structure.WorkflowInputSchema, structure.WorkflowOutputSchema),
		typeName:  typeName,
		structure: structure,
		executor:  exec,
	}
	p.watchInputs()
	if err := p.wire(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) Type() string          { return p.typeName }
func (p *Pipeline) IsPipeline() bool      { return true }
func (p *Pipeline) Structure() *Structure { return p.structure }

// SetExecutor swaps the executor driving subsequent Process calls
// (spec §6: "Executor selection: API parameter per run"). Not safe to
// call concurrently with a Process call on the same Pipeline.
func (p *Pipeline) SetExecutor(exec Executor) {
	p.executor = exec
}

// Process drives the pipeline's own compiled structure stage by stage
// (spec §4.8), recursing naturally: if one of its children is itself a
// Pipeline, that child's Process call repeats this same algorithm over
// its own structure.
func (p *Pipeline) Process(ctx context.Context) error {
	p.machine.ProcessStarted()
	if err := RunStages(ctx, p.structure.Stages, p.executor); err != nil {
		_ = p.outputs.ClearAll()
		p.machine.ProcessFailed()
		return err
	}
	p.machine.ProcessSucceeded()
	return nil
}

// RunStages walks stages in order, dispatching each stage's ready
// children to exec and enforcing the total barrier between stages
// (spec §4.8, §5).
func RunStages(ctx context.Context, stages [][]Module, exec Executor) error {
	for i, stage := range stages {
		if err := ctxError(ctx, i); err != nil {
			return err
		}

		var ready []Module
		for _, m := range stage {
			switch m.State() {
			case state.ResultsReady:
				continue // memoized; re-run is a no-op at the module level
			case state.ResultsIncoming:
				return pipeflowerr.ErrInvariantViolation("module " + m.Address() + " observed RESULTS_INCOMING at stage start")
			case state.InputsReady:
				ready = append(ready, m)
			case state.Stale:
				continue // unreachable this run; skipped silently
			}
		}
		if len(ready) == 0 {
			continue
		}
		if err := exec.RunAll(ctx, ready); err != nil {
			return err
		}
	}
	if err := ctxError(ctx, len(stages)); err != nil {
		return err
	}
	return nil
}

func ctxError(ctx context.Context, stage int) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return pipeflowerr.ErrTimeout(stage)
	case context.Canceled:
		return pipeflowerr.ErrCancelled(stage)
	default:
		return nil
	}
}
