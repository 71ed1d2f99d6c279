package module

import (
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
)

// wire glues the structure's items together via listeners (spec §4.6):
// workflow input → child input, child output → child input, and child
// output → workflow output. Already-bound workflow input values are
// copied into child inputs as they are wired (priming).
func (p *Pipeline) wire() error {
	for _, link := range p.structure.InputLinks {
		child, ok := p.structure.ChildByAlias[link.ChildAlias]
		if !ok {
			return pipeflowerr.ErrMissingBinding(link.ChildAlias, link.Port)
		}
		dst, err := child.Inputs().Get(link.Port)
		if err != nil {
			return err
		}

		switch link.Source.Kind {
		case SourceWorkflowInput:
			src, err := p.inputs.Get(link.Source.WorkflowInput)
			if err != nil {
				return err
			}
			src.AddListener(copyListener(dst))
			if v, present := src.Value(); present {
				if err := dst.Set(v); err != nil {
					return err
				}
			}

		case SourceChildOutput:
			srcChild, ok := p.structure.ChildByAlias[link.Source.ChildAlias]
			if !ok {
				return pipeflowerr.ErrMissingBinding(link.Source.ChildAlias, link.Source.ChildPort)
			}
			src, err := srcChild.Outputs().Get(link.Source.ChildPort)
			if err != nil {
				return err
			}
			src.AddListener(copyListener(dst))
		}
	}

	for _, out := range p.structure.OutputLinks {
		srcChild, ok := p.structure.ChildByAlias[out.ChildAlias]
		if !ok {
			return pipeflowerr.ErrMissingBinding(out.ChildAlias, out.ChildPort)
		}
		src, err := srcChild.Outputs().Get(out.ChildPort)
		if err != nil {
			return err
		}
		dst, err := p.outputs.Get(out.ExternalName)
		if err != nil {
			return err
		}
		src.AddListener(copyListener(dst))
	}

	return nil
}

// copyListener propagates a source item's value (or absence) into dst.
// Clearing cascades downstream the same way a write does, so that
// invalidating an upstream item correctly downgrades every dependent
// module's state.
func copyListener(dst *item.DataItem) item.Listener {
	return func(src *item.DataItem) error {
		v, present := src.Value()
		if !present {
			return dst.Clear()
		}
		return dst.Set(v)
	}
}
