// Package registry implements the module registry (spec §4.3): the
// two mappings — type_name → atomic factory and type_name → pipeline
// descriptor — that the compiler resolves child types against, plus
// the directory scan that populates pipeline types on startup
// (spec §6).
package registry

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/internal/plog"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
)

// Factory manufactures a Module instance from its config. alias is the
// new module's own alias; parentAddress is its enclosing pipeline's
// dotted address, or "" for a workflow root — address composition
// needs only that string, never a live reference to the (possibly
// not-yet-built) enclosing Pipeline.
type Factory func(alias, parentAddress string, cfg map[string]any) (module.Module, error)

// CompileFunc builds a pipeline Module from its descriptor (spec
// §4.5). It is injected rather than imported directly: the compiler
// package needs to resolve child types through the Registry, and the
// Registry needs to hand back a compiling factory for pipeline types,
// so the concrete compiler lives on the other side of this seam to
// avoid an import cycle between registry and compiler.
type CompileFunc func(reg *Registry, workflowID, alias, parentAddress string, d *config.PipelineDescriptor, moduleConfig map[string]any, exec module.Executor) (module.Module, error)

// Registry holds atomic factories and pipeline descriptors, and
// resolves a type name to a Factory for either kind (spec §4.3).
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	pipelines map[string]*config.PipelineDescriptor
	compile   CompileFunc
	// defaultExecutor is the executor handed to compiled pipelines
	// unless a caller overrides it; see engine.Engine.
	defaultExecutor module.Executor
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		pipelines: make(map[string]*config.PipelineDescriptor),
	}
}

// SetCompileFunc injects the pipeline compiler. Must be called before
// any Resolve of a pipeline type; engine.New does this during
// construction.
func (r *Registry) SetCompileFunc(fn CompileFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compile = fn
}

// SetDefaultExecutor sets the executor used to drive newly compiled
// pipelines that don't specify one explicitly.
func (r *Registry) SetDefaultExecutor(exec module.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultExecutor = exec
}

// RegisterType registers an atomic module factory under typeName.
func (r *Registry) RegisterType(typeName string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = f
}

// RegisterPipeline registers a pipeline descriptor under typeName,
// re-validating it against the registry: every child's module_type
// must already resolve (spec §4.3: "register_pipeline... re-validates
// the descriptor against the registry").
func (r *Registry) RegisterPipeline(typeName string, d *config.PipelineDescriptor) error {
	r.mu.RLock()
	for _, child := range d.Modules {
		if child.ModuleType == "" {
			r.mu.RUnlock()
			return pipeflowerr.ErrInvalidConfigField(typeName, "module_type", "missing")
		}
		_, atomicOK := r.factories[child.ModuleType]
		_, pipelineOK := r.pipelines[child.ModuleType]
		if !atomicOK && !pipelineOK {
			r.mu.RUnlock()
			return pipeflowerr.ErrUnknownType("module", child.ModuleType)
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[typeName] = d
	return nil
}

// Resolve returns a Factory for typeName, whether it names an atomic
// module type or a registered pipeline. Resolving a pipeline name
// returns a factory that compiles a fresh Pipeline module from the
// stored descriptor on every call (spec §4.3).
func (r *Registry) Resolve(typeName string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[typeName]; ok {
		return f, nil
	}
	if d, ok := r.pipelines[typeName]; ok {
		if r.compile == nil {
			return nil, pipeflowerr.ErrInvariantViolation("registry has no compile function set")
		}
		exec := r.defaultExecutor
		return func(alias, parentAddress string, cfg map[string]any) (module.Module, error) {
			return r.compile(r, typeName, alias, parentAddress, d, cfg, exec)
		}, nil
	}
	return nil, pipeflowerr.ErrUnknownType("module", typeName)
}

// KnownTypes lists every registered type name, atomic and pipeline.
func (r *Registry) KnownTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories)+len(r.pipelines))
	for name := range r.factories {
		out = append(out, name)
	}
	for name := range r.pipelines {
		out = append(out, name)
	}
	return out
}

// skipDirs are excluded from the directory scan by default (spec §6).
var skipDirs = map[string]bool{".git": true, ".tox": true, ".cache": true}

// LoadDirectory walks root, parsing every descriptor file
// (.yaml/.yml/.json) and registering it as a pipeline type — under its
// own module_type_name if set, else the file stem (spec §6). A bad
// descriptor file (unreadable, malformed, or referencing an unknown
// child type) is logged as a warning and skipped; the scan continues
// so a single broken file cannot hide its valid siblings.
func (r *Registry) LoadDirectory(fsys fs.FS, root string) error {
	logger := plog.New("registry")
	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !config.IsDescriptorFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable descriptor")
			return nil
		}
		descriptor, err := config.ParseDescriptorBytes(data)
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("skipping malformed descriptor")
			return nil
		}

		name := descriptor.ModuleTypeName
		if name == "" {
			name = stem(path)
		}
		if err := r.RegisterPipeline(name, descriptor); err != nil {
			logger.Warn().Str("path", path).Str("type", name).Err(err).Msg("skipping descriptor that failed to register")
			return nil
		}
		return nil
	})
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuiltinPipelines is embedded so the registry always has at least the
// xor example pipeline available.
//
//go:embed builtins/*.yaml
var BuiltinPipelines embed.FS

// LoadBuiltins registers the pipelines embedded in BuiltinPipelines.
func (r *Registry) LoadBuiltins() error {
	return r.LoadDirectory(BuiltinPipelines, "builtins")
}
