package builtins

import (
	"context"
	"strings"

	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
)

// Tokenize registers a module that splits its "text" string input into
// a "tokens" table of whitespace-delimited words, grounded on
// original_source/src/dharpa_toolbox/modules/text.py's
// TokenizeTextModule (there backed by nltk.wordpunct_tokenize; here by
// strings.Fields, since a full tokenizer library has no counterpart in
// the rest of the corpus).
func Tokenize(r *registry.Registry) {
	r.RegisterType("tokenize", func(alias, address string, cfg map[string]any) (module.Module, error) {
		in := map[string]schema.Schema{"text": {Type: schema.String}}
		out := map[string]schema.Schema{"tokens": {Type: schema.Table}}
		return module.NewAtomic(alias, address, "tokenize", "splits text into whitespace-delimited tokens", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			it, err := inputs.Get("text")
			if err != nil {
				return err
			}
			v, _ := it.Value()
			tokens := strings.Fields(v.(string))
			return outputs.SetValues(map[string]any{"tokens": tokens})
		}), nil
	})
}
