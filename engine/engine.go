// Package engine is the public facade (spec §6): it wires the registry,
// compiler, and default executor together — breaking the registry ⇄
// compiler import cycle via registry.SetCompileFunc — and exposes
// create_workflow / pipeline.inputs / pipeline.outputs / pipeline.process.
package engine

import (
	"io/fs"

	"github.com/ashgrove-labs/pipeflow/compiler"
	"github.com/ashgrove-labs/pipeflow/executor"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/registry"
)

// Engine owns a Registry wired to the concrete compiler and a default
// executor. Engines are not process-wide singletons: tests and callers
// construct private ones (spec §9 DESIGN NOTES: "Global registry
// becomes an explicit Engine/Registry value").
type Engine struct {
	registry *registry.Registry
}

// New builds an Engine with an empty registry and a Cooperative default
// executor.
func New() *Engine {
	reg := registry.New()
	reg.SetCompileFunc(compiler.Compile)
	reg.SetDefaultExecutor(executor.Cooperative{})
	return &Engine{registry: reg}
}

// Registry exposes the underlying Registry for direct type/pipeline
// registration (builtins.RegisterAll, RegisterPipeline, LoadDirectory).
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// SetDefaultExecutor changes the executor newly compiled pipelines are
// given unless overridden per-run via WithExecutor.
func (e *Engine) SetDefaultExecutor(exec module.Executor) {
	e.registry.SetDefaultExecutor(exec)
}

// LoadDirectory registers every descriptor under root as a pipeline
// type (spec §6: "Registry population").
func (e *Engine) LoadDirectory(fsys fs.FS, root string) error {
	return e.registry.LoadDirectory(fsys, root)
}

// CreateWorkflow instantiates a fresh root Pipeline of typeName (spec
// §6: "create_workflow(type, alias?) → Pipeline"). alias defaults to
// typeName when empty; a root module has no parent address.
func (e *Engine) CreateWorkflow(typeName, alias string) (*Pipeline, error) {
	if alias == "" {
		alias = typeName
	}
	factory, err := e.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	m, err := factory(alias, "", nil)
	if err != nil {
		return nil, err
	}
	if _, ok := m.(*module.Pipeline); !ok {
		return nil, pipeflowerr.ErrInvalidConfigField(typeName, "module_type", "workflows must be pipeline types")
	}
	return &Pipeline{m: m}, nil
}
