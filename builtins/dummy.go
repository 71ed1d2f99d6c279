package builtins

import (
	"context"
	"time"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
)

// Dummy registers a pass-through module: its single "value" input is
// copied to its single "value" output unchanged, after an optional
// configured delay. Grounded on
// original_source/src/dharpa/processing/core/dummy.py (hard-coded
// delay/output simulation) and steps/delay.go's ValueSpec-resolved
// delay duration.
//
// module_config:
//
//	type:      one of the schema.Type tags (default "string")
//	delay_ms:  a config.ValueSpec, evaluated fresh on every Process call
func Dummy(r *registry.Registry) {
	r.RegisterType("dummy", func(alias, address string, cfg map[string]any) (module.Module, error) {
		typ := schema.String
		if raw, ok := cfg["type"].(string); ok && raw != "" {
			typ = schema.Type(raw)
		}
		if !schema.KnownType(typ) {
			return nil, pipeflowerr.ErrUnknownType("schema", string(typ))
		}

		var delay config.ValueSpec = config.NewStaticValue(0)
		if raw, ok := cfg["delay_ms"]; ok {
			delay = config.ParseValue(raw)
		}

		valueSchema := schema.Schema{Type: typ}
		in := map[string]schema.Schema{"value": valueSchema}
		out := map[string]schema.Schema{"value": valueSchema}

		return module.NewAtomic(alias, address, "dummy", "passes value through unchanged", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			it, err := inputs.Get("value")
			if err != nil {
				return err
			}
			v, _ := it.Value()

			ms, err := delay.Resolve(config.Context{})
			if err != nil {
				return err
			}
			if d := toDuration(ms); d > 0 {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			return outputs.SetValues(map[string]any{"value": v})
		}), nil
	})
}

func toDuration(v any) time.Duration {
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Millisecond
	case int64:
		return time.Duration(n) * time.Millisecond
	case float64:
		return time.Duration(n * float64(time.Millisecond))
	default:
		return 0
	}
}
