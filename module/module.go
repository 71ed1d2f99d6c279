// Package module implements pipeflow's module contract (spec §4.4): the
// uniform {input_schema, output_schema, process, doc} surface shared by
// atomic modules and pipeline modules, plus the pipeline structure
// (§4.5), value wiring (§4.6), and stage-by-stage execution (§4.8) that
// make a pipeline module itself just another Module.
package module

import (
	"context"

	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/ashgrove-labs/pipeflow/state"
)

// Module is the uniform contract every atomic or pipeline unit
// implements (spec §4.4). A pipeline module satisfies it exactly the
// same way an atomic one does — spec §9's "dynamic class synthesis"
// note resolves to an explicit Atomic|Pipeline variant, not a runtime
// subclass.
type Module interface {
	Alias() string
	// Address is the dotted path from the root pipeline down to this
	// module, via aliases (spec GLOSSARY: "Address"). It is fixed at
	// construction time by whichever compiler step creates the module,
	// computed from the enclosing pipeline's own address — a plain
	// string, so building a nested pipeline's children never needs a
	// live reference back to the not-yet-built enclosing Pipeline.
	Address() string
	Type() string
	IsPipeline() bool
	Doc() string
	InputSchema() map[string]schema.Schema
	OutputSchema() map[string]schema.Schema
	Inputs() *item.InputBag
	Outputs() *item.OutputBag
	State() state.State
	ExecutionStage() int
	SetExecutionStage(stage int)
	Process(ctx context.Context) error
}

// base holds the fields every Module variant shares.
type base struct {
	alias     string
	address   string
	doc       string
	inStage   int
	inSchema  map[string]schema.Schema
	outSchema map[string]schema.Schema
	inputs    *item.InputBag
	outputs   *item.OutputBag
	machine   *state.Machine
}

func newBase(alias, address, doc string, inSchema, outSchema map[string]schema.Schema) base {
	return base{
		alias:     alias,
		address:   address,
		doc:       doc,
		inSchema:  inSchema,
		outSchema: outSchema,
		inputs:    item.NewInputBag(sortedKeys(inSchema), inSchema),
		outputs:   item.NewOutputBag(sortedKeys(outSchema), outSchema),
		machine:   state.NewMachine(),
	}
}

func (b *base) Alias() string                           { return b.alias }
func (b *base) Address() string                         { return b.address }
func (b *base) Doc() string                              { return b.doc }
func (b *base) InputSchema() map[string]schema.Schema   { return b.inSchema }
func (b *base) OutputSchema() map[string]schema.Schema  { return b.outSchema }
func (b *base) Inputs() *item.InputBag                  { return b.inputs }
func (b *base) Outputs() *item.OutputBag                { return b.outputs }
func (b *base) ExecutionStage() int                     { return b.inStage }
func (b *base) SetExecutionStage(stage int)             { b.inStage = stage }

// State reports the module's effective state: its last transition
// reconciled with a recomputation over current bag validity by
// state.Machine.Effective (spec §4.7). Atomic/Pipeline also push
// explicit transitions on input writes; the recomputation additionally
// lifts a module whose inputs are valid without any write (no input
// ports, or defaults only) to INPUTS_READY.
func (b *base) State() state.State {
	return b.machine.Sync(state.Validity{
		InputsValid:  b.inputs.AllValid(),
		OutputsValid: b.outputs.AllValid(),
	})
}

// watchInputs attaches a listener to every input item that keeps the
// state machine's explicit transitions in sync with bag writes (spec
// §4.7 transition table rows driven by "input invalidated/cleared" and
// "any input changes").
func (b *base) watchInputs() {
	for _, name := range b.inputs.Names() {
		it, _ := b.inputs.Get(name)
		it.AddListener(func(_ *item.DataItem) error {
			b.onInputChanged()
			return nil
		})
	}
}

func (b *base) onInputChanged() {
	switch b.machine.Current() {
	case state.ResultsReady:
		b.machine.InputsInvalidated()
	case state.InputsReady:
		if !b.inputs.AllValid() {
			b.machine.InputsInvalidated()
		}
	case state.Stale:
		if b.inputs.AllValid() {
			b.machine.InputsBecameValid()
		}
	}
}

func sortedKeys(m map[string]schema.Schema) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// deterministic port ordering independent of map iteration
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ProcessFunc is an atomic module's compute: read inputs, write
// outputs, complete or fail (spec §4.4).
type ProcessFunc func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error

// Atomic is a module whose compute is implemented directly (spec
// GLOSSARY).
type Atomic struct {
	base
	typeName string
	fn       ProcessFunc
}

// NewAtomic constructs an Atomic module bound to fn. address is this
// module's full dotted path; pass alias itself for a workflow root.
func NewAtomic(alias, address, typeName, doc string, inSchema, outSchema map[string]schema.Schema, fn ProcessFunc) *Atomic {
	a := &Atomic{
		base:     newBase(alias, address, doc, inSchema, outSchema),
		typeName: typeName,
		fn:       fn,
	}
	a.watchInputs()
	return a
}

func (a *Atomic) Type() string     { return a.typeName }
func (a *Atomic) IsPipeline() bool { return false }

// Process runs fn once per call (spec §4.4, §4.7); it does not itself
// skip a module that is already RESULTS_READY — RunStages does that. On
// failure the output bag is cleared and the module's transition state
// returns to STALE; on success outputs are left as fn wrote them and
// the module becomes RESULTS_READY.
func (a *Atomic) Process(ctx context.Context) error {
	a.machine.ProcessStarted()
	if err := a.fn(ctx, a.inputs, a.outputs); err != nil {
		_ = a.outputs.ClearAll()
		a.machine.ProcessFailed()
		return pipeflowerr.ErrProcessing(a.Address(), err)
	}
	a.machine.ProcessSucceeded()
	return nil
}
