// Package builtins supplies a small library of ready-to-use atomic
// module types (spec.md §1 names "logic gates, text tokenizers, file
// readers, dummy/delay modules" as examples of what such a library
// holds). Grounded on original_source/src/dharpa_toolbox/modules/core.py,
// text.py and files.py.
package builtins

import (
	"context"

	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
)

func boolSchema() schema.Schema { return schema.Schema{Type: schema.Boolean} }

// And registers the two-input boolean AND gate.
func And(r *registry.Registry) {
	r.RegisterType("and", func(alias, address string, cfg map[string]any) (module.Module, error) {
		in := map[string]schema.Schema{"a": boolSchema(), "b": boolSchema()}
		out := map[string]schema.Schema{"y": boolSchema()}
		return module.NewAtomic(alias, address, "and", "logical AND of a and b", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			a, b, err := twoBools(inputs)
			if err != nil {
				return err
			}
			return outputs.SetValues(map[string]any{"y": a && b})
		}), nil
	})
}

// Or registers the two-input boolean OR gate.
func Or(r *registry.Registry) {
	r.RegisterType("or", func(alias, address string, cfg map[string]any) (module.Module, error) {
		in := map[string]schema.Schema{"a": boolSchema(), "b": boolSchema()}
		out := map[string]schema.Schema{"y": boolSchema()}
		return module.NewAtomic(alias, address, "or", "logical OR of a and b", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			a, b, err := twoBools(inputs)
			if err != nil {
				return err
			}
			return outputs.SetValues(map[string]any{"y": a || b})
		}), nil
	})
}

// Not registers the single-input boolean negation gate.
func Not(r *registry.Registry) {
	r.RegisterType("not", func(alias, address string, cfg map[string]any) (module.Module, error) {
		in := map[string]schema.Schema{"a": boolSchema()}
		out := map[string]schema.Schema{"y": boolSchema()}
		return module.NewAtomic(alias, address, "not", "logical negation of a", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			a, err := oneBool(inputs, "a")
			if err != nil {
				return err
			}
			return outputs.SetValues(map[string]any{"y": !a})
		}), nil
	})
}

func oneBool(inputs *item.InputBag, port string) (bool, error) {
	it, err := inputs.Get(port)
	if err != nil {
		return false, err
	}
	v, _ := it.Value()
	return v.(bool), nil
}

func twoBools(inputs *item.InputBag) (a, b bool, err error) {
	a, err = oneBool(inputs, "a")
	if err != nil {
		return false, false, err
	}
	b, err = oneBool(inputs, "b")
	if err != nil {
		return false, false, err
	}
	return a, b, nil
}
