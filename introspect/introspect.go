// Package introspect emits serializable structure/state snapshots of a
// module or pipeline (spec §4.9), built from JSON-tagged structs.
package introspect

import (
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/schema"
)

// PortDetails is one port's current snapshot: its schema and its
// item's current value, if any.
type PortDetails struct {
	Schema map[string]any `json:"schema"`
	Value  any            `json:"value,omitempty"`
	Valid  bool           `json:"valid"`
}

// ModuleDetails is module.to_details() (spec §4.9): a self-contained
// snapshot of one module, nesting its own pipeline structure if it is
// a Pipeline.
type ModuleDetails struct {
	Alias             string                 `json:"alias"`
	Address           string                 `json:"address"`
	Type              string                 `json:"type"`
	IsPipeline        bool                   `json:"is_pipeline"`
	State             string                 `json:"state"`
	ExecutionStage    int                    `json:"execution_stage"`
	Inputs            map[string]PortDetails `json:"inputs"`
	Outputs           map[string]PortDetails `json:"outputs"`
	Doc               string                 `json:"doc,omitempty"`
	PipelineStructure *StructureDetails      `json:"pipeline_structure,omitempty"`
}

// Module builds a point-in-time ModuleDetails snapshot of m. It only
// reads m's existing bags/state via their own synchronized accessors,
// so it is safe to call while a run is in progress (spec §4.9).
func Module(m module.Module) ModuleDetails {
	d := ModuleDetails{
		Alias:          m.Alias(),
		Address:        m.Address(),
		Type:           m.Type(),
		IsPipeline:     m.IsPipeline(),
		State:          m.State().String(),
		ExecutionStage: m.ExecutionStage(),
		Doc:            m.Doc(),
		Inputs:         portSnapshot(m.InputSchema(), m.Inputs().Names(), itemValue(m.Inputs())),
		Outputs:        portSnapshot(m.OutputSchema(), m.Outputs().Names(), itemValue(m.Outputs())),
	}

	if p, ok := m.(*module.Pipeline); ok {
		sd := Structure(p.Structure())
		d.PipelineStructure = &sd
	}

	return d
}

type portGetter interface {
	Get(name string) (*item.DataItem, error)
}

func itemValue(g portGetter) func(name string) (any, bool) {
	return func(name string) (any, bool) {
		it, err := g.Get(name)
		if err != nil {
			return nil, false
		}
		return it.Value()
	}
}

func portSnapshot(schemas map[string]schema.Schema, names []string, value func(name string) (any, bool)) map[string]PortDetails {
	out := make(map[string]PortDetails, len(names))
	for _, name := range names {
		v, present := value(name)
		out[name] = PortDetails{
			Schema: schemas[name].ToSerializable(),
			Value:  v,
			Valid:  present,
		}
	}
	return out
}

// ModuleConnections is one child's resolved wiring within a pipeline's
// structure snapshot: each input port's source_ref, and each output
// port's sink_refs (spec §4.9).
type ModuleConnections struct {
	Module            ModuleDetails       `json:"module"`
	InputConnections  map[string]string   `json:"input_connections"`
	OutputConnections map[string][]string `json:"output_connections"`
}

// StructureDetails is pipeline.structure_details() (spec §4.9).
type StructureDetails struct {
	WorkflowID                string              `json:"workflow_id"`
	Modules                   []ModuleConnections `json:"modules"`
	WorkflowInputConnections  map[string][]string `json:"workflow_input_connections"`
	WorkflowOutputConnections map[string]string   `json:"workflow_output_connections"`
}

// Structure builds a point-in-time StructureDetails snapshot of s.
func Structure(s *module.Structure) StructureDetails {
	inputConns := make(map[string]map[string]string, len(s.Children))
	outputConns := make(map[string]map[string][]string, len(s.Children))
	for _, c := range s.Children {
		inputConns[c.Alias()] = make(map[string]string)
		outputConns[c.Alias()] = make(map[string][]string)
	}

	workflowInputConns := make(map[string][]string)
	workflowOutputConns := make(map[string]string)

	for _, link := range s.InputLinks {
		switch link.Source.Kind {
		case module.SourceWorkflowInput:
			ref := "__parent__." + link.Source.WorkflowInput
			inputConns[link.ChildAlias][link.Port] = ref
			workflowInputConns[link.Source.WorkflowInput] = append(workflowInputConns[link.Source.WorkflowInput], link.ChildAlias+"."+link.Port)
		case module.SourceChildOutput:
			ref := link.Source.ChildAlias + "." + link.Source.ChildPort
			inputConns[link.ChildAlias][link.Port] = ref
			sinkRef := link.ChildAlias + "." + link.Port
			outputConns[link.Source.ChildAlias][link.Source.ChildPort] = append(outputConns[link.Source.ChildAlias][link.Source.ChildPort], sinkRef)
		}
	}

	for _, link := range s.OutputLinks {
		sinkRef := "__parent__." + link.ExternalName
		outputConns[link.ChildAlias][link.ChildPort] = append(outputConns[link.ChildAlias][link.ChildPort], sinkRef)
		workflowOutputConns[link.ExternalName] = link.ChildAlias + "." + link.ChildPort
	}

	modules := make([]ModuleConnections, 0, len(s.Children))
	for _, c := range s.Children {
		modules = append(modules, ModuleConnections{
			Module:            Module(c),
			InputConnections:  inputConns[c.Alias()],
			OutputConnections: outputConns[c.Alias()],
		})
	}

	return StructureDetails{
		WorkflowID:                s.WorkflowID,
		Modules:                   modules,
		WorkflowInputConnections:  workflowInputConns,
		WorkflowOutputConnections: workflowOutputConns,
	}
}
