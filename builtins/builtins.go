package builtins

import "github.com/ashgrove-labs/pipeflow/registry"

// RegisterAll registers every built-in atomic type on r. Callers that
// also want the embedded xor.yaml pipeline must call this before
// r.LoadBuiltins, since that descriptor's and/or/not children must
// already resolve (spec §4.3 re-validation on RegisterPipeline).
func RegisterAll(r *registry.Registry) {
	And(r)
	Or(r)
	Not(r)
	Dummy(r)
	Tokenize(r)
	ReadFile(r)
}
