// Package compiler implements the pipeline structure compiler (spec
// §4.5): instantiating a pipeline descriptor's children, allocating
// output links, resolving input links, assigning stages by longest
// path from a synthetic root, and detecting cycles.
package compiler

import (
	"fmt"
	"sort"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/internal/plog"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
)

// Compile builds a Pipeline module named alias (address parentAddress
// + "." + alias, or just alias at the workflow root) from d, resolving
// every child type through reg. It matches registry.CompileFunc and is
// injected into the registry by engine.New to avoid an import cycle
// (registry must not import compiler; see DESIGN.md).
func Compile(reg *registry.Registry, workflowID, alias, parentAddress string, d *config.PipelineDescriptor, moduleConfig map[string]any, exec module.Executor) (module.Module, error) {
	address := alias
	if parentAddress != "" {
		address = parentAddress + "." + alias
	}

	children, childByAlias, aliases, err := instantiateChildren(reg, address, d)
	if err != nil {
		return nil, err
	}

	outputLinks, workflowOutputSchema, err := allocateOutputLinks(d, aliases, childByAlias)
	if err != nil {
		return nil, err
	}

	inputLinks, workflowInputSchema, edges, err := resolveInputLinks(d, aliases, childByAlias)
	if err != nil {
		return nil, err
	}

	stages, err := assignStages(children, edges)
	if err != nil {
		return nil, err
	}
	for i, stage := range stages {
		for _, m := range stage {
			m.SetExecutionStage(i + 1)
		}
	}

	structure := &module.Structure{
		WorkflowID:           workflowID,
		Children:             children,
		ChildByAlias:         childByAlias,
		Stages:               stages,
		Edges:                edges,
		WorkflowInputSchema:  workflowInputSchema,
		WorkflowOutputSchema: workflowOutputSchema,
		InputLinks:           inputLinks,
		OutputLinks:          outputLinks,
	}

	return module.NewPipeline(alias, address, workflowID, d.Doc, structure, exec)
}

// instantiateChildren resolves and constructs every child descriptor in
// order (spec §4.5 step 1). Explicit module_alias wins; otherwise an
// alias is derived from module_type with an incremental numeric suffix
// to disambiguate.
func instantiateChildren(reg *registry.Registry, parentAddress string, d *config.PipelineDescriptor) ([]module.Module, map[string]module.Module, []string, error) {
	used := make(map[string]bool)
	children := make([]module.Module, 0, len(d.Modules))
	byAlias := make(map[string]module.Module, len(d.Modules))
	aliases := make([]string, 0, len(d.Modules))

	for _, cd := range d.Modules {
		alias := cd.ModuleAlias
		if alias != "" {
			if used[alias] {
				return nil, nil, nil, pipeflowerr.ErrDuplicateAlias(alias)
			}
		} else {
			alias = autoAlias(cd.ModuleType, used)
		}
		used[alias] = true

		factory, err := reg.Resolve(cd.ModuleType)
		if err != nil {
			return nil, nil, nil, err
		}
		child, err := factory(alias, parentAddress, cd.ModuleConfig)
		if err != nil {
			return nil, nil, nil, err
		}

		children = append(children, child)
		byAlias[alias] = child
		aliases = append(aliases, alias)
	}

	return children, byAlias, aliases, nil
}

func autoAlias(moduleType string, used map[string]bool) string {
	if !used[moduleType] {
		return moduleType
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", moduleType, n)
		if !used[candidate] {
			return candidate
		}
	}
}

// allocateOutputLinks creates a WorkflowOutputLink for every child ×
// output port whose (alias, port) is listed in output_aliases, or
// whose pipeline exposes all outputs by default (spec §4.5 step 2).
func allocateOutputLinks(d *config.PipelineDescriptor, aliases []string, childByAlias map[string]module.Module) ([]module.WorkflowOutputLink, map[string]schema.Schema, error) {
	var links []module.WorkflowOutputLink
	workflowSchema := make(map[string]schema.Schema)
	logger := plog.New("compiler")

	for _, alias := range aliases {
		child := childByAlias[alias]
		for _, port := range sortedPorts(child.OutputSchema()) {
			key := alias + "__" + port
			external, aliased := d.OutputAliases[key]
			switch {
			case aliased:
				// explicit override wins (spec §9 resolved Open Question)
				if d.ExposeAll && external != key {
					logger.Warn().Str("port", key).Str("exposed_as", external).Msg("output alias shadows the default-exposed name")
				}
			case d.ExposeAll:
				external = key
			default:
				continue
			}
			if _, exists := workflowSchema[external]; exists {
				return nil, nil, pipeflowerr.ErrDuplicateAlias(external)
			}
			workflowSchema[external] = child.OutputSchema()[port]
			links = append(links, module.WorkflowOutputLink{
				ExternalName: external,
				ChildAlias:   alias,
				ChildPort:    port,
			})
		}
	}
	return links, workflowSchema, nil
}

// resolveInputLinks resolves every child × input port into either a
// child-to-child link (recording a data-flow edge) or a workflow-level
// input binding (spec §4.5 step 3).
func resolveInputLinks(d *config.PipelineDescriptor, aliases []string, childByAlias map[string]module.Module) ([]module.ChildInputLink, map[string]schema.Schema, map[string][]string, error) {
	var links []module.ChildInputLink
	workflowSchema := make(map[string]schema.Schema)
	edges := make(map[string][]string)

	for i, cd := range d.Modules {
		alias := aliases[i]
		child := childByAlias[alias]

		linkRefs, err := config.ParseInputLinks(cd.InputLinks)
		if err != nil {
			return nil, nil, nil, err
		}

		for _, port := range sortedPorts(child.InputSchema()) {
			ref, isChildLink := linkRefs[port]
			if isChildLink {
				srcChild, ok := childByAlias[ref.ModuleID]
				if !ok {
					return nil, nil, nil, pipeflowerr.ErrBadInputLink(port, ref.ModuleID)
				}
				srcSchema, ok := srcChild.OutputSchema()[ref.ValueName]
				if !ok {
					return nil, nil, nil, pipeflowerr.ErrUnknownPort(ref.ValueName)
				}
				if !srcSchema.CompatibleWith(child.InputSchema()[port]) {
					return nil, nil, nil, pipeflowerr.ErrTypeMismatch(alias+"."+port, string(child.InputSchema()[port].Type), string(srcSchema.Type))
				}
				links = append(links, module.ChildInputLink{
					ChildAlias: alias,
					Port:       port,
					Source: module.LinkSource{
						Kind:       module.SourceChildOutput,
						ChildAlias: ref.ModuleID,
						ChildPort:  ref.ValueName,
					},
				})
				edges[ref.ModuleID] = append(edges[ref.ModuleID], alias)
				continue
			}

			external := d.InputAliases[alias+"__"+port]
			if external == "" {
				external = alias + "__" + port
			}
			childSchema := child.InputSchema()[port]
			if existing, bound := workflowSchema[external]; bound {
				if !existing.CompatibleWith(childSchema) {
					return nil, nil, nil, pipeflowerr.ErrTypeMismatch(external, string(existing.Type), string(childSchema.Type))
				}
			} else {
				workflowSchema[external] = childSchema
			}
			links = append(links, module.ChildInputLink{
				ChildAlias: alias,
				Port:       port,
				Source: module.LinkSource{
					Kind:          module.SourceWorkflowInput,
					WorkflowInput: external,
				},
			})
		}
	}

	return links, workflowSchema, edges, nil
}

// assignStages adds the synthetic __root__ node (spec §4.5 step 4),
// computes each child's longest simple path length from it (step 5),
// and detects cycles (step 6) via a plain memoized DFS — the graphs
// compiled here are small, so no general graph library is warranted
// (see DESIGN.md).
func assignStages(children []module.Module, edges map[string][]string) ([][]module.Module, error) {
	predecessors := make(map[string][]string, len(children))
	for src, targets := range edges {
		for _, t := range targets {
			predecessors[t] = append(predecessors[t], src)
		}
	}

	depth := make(map[string]int)
	visiting := make(map[string]bool)

	var longestPath func(alias string) (int, error)
	longestPath = func(alias string) (int, error) {
		if d, ok := depth[alias]; ok {
			return d, nil
		}
		if visiting[alias] {
			return 0, pipeflowerr.ErrCyclicDependency([]string{alias})
		}
		visiting[alias] = true
		defer delete(visiting, alias)

		best := 0
		for _, src := range predecessors[alias] {
			d, err := longestPath(src)
			if err != nil {
				if ce, ok := err.(*pipeflowerr.CyclicDependencyError); ok {
					return 0, pipeflowerr.ErrCyclicDependency(append(ce.Chain, alias))
				}
				return 0, err
			}
			if d+1 > best {
				best = d + 1
			}
		}
		depth[alias] = best
		return best, nil
	}

	maxStage := 0
	for _, c := range children {
		d, err := longestPath(c.Alias())
		if err != nil {
			return nil, err
		}
		if d > maxStage {
			maxStage = d
		}
	}

	stages := make([][]module.Module, maxStage+1)
	for _, c := range children {
		d := depth[c.Alias()]
		stages[d] = append(stages[d], c)
	}
	// Stage 0 holds only children with no dependency on another child
	// (direct __root__ edges); if a later stage ended up empty because
	// every child at that depth was reclassified, compress trailing
	// empties caused by disconnected numbering.
	return compactStages(stages), nil
}

func compactStages(stages [][]module.Module) [][]module.Module {
	out := make([][]module.Module, 0, len(stages))
	for _, s := range stages {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return stages[:0]
	}
	return out
}

func sortedPorts(m map[string]schema.Schema) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
