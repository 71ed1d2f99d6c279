package builtins

import (
	"context"
	"os"

	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
)

// ReadFile registers a module that reads the file at its "path" string
// input and returns its content as a "content" string output, grounded
// on original_source/src/dharpa_toolbox/modules/files.py's
// ReadFilesModule. No streaming/chunked reads, and only a single path
// per call, unlike the original's list/dict forms.
func ReadFile(r *registry.Registry) {
	r.RegisterType("read_file", func(alias, address string, cfg map[string]any) (module.Module, error) {
		in := map[string]schema.Schema{"path": {Type: schema.String}}
		out := map[string]schema.Schema{"content": {Type: schema.String}}
		return module.NewAtomic(alias, address, "read_file", "reads a file's contents as text", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			it, err := inputs.Get("path")
			if err != nil {
				return err
			}
			v, _ := it.Value()
			data, err := os.ReadFile(v.(string))
			if err != nil {
				return err
			}
			return outputs.SetValues(map[string]any{"content": string(data)})
		}), nil
	})
}
