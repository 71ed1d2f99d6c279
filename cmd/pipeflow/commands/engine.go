package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashgrove-labs/pipeflow/builtins"
	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/engine"
	"github.com/ashgrove-labs/pipeflow/internal/plog"
	"github.com/ashgrove-labs/pipeflow/registry"
)

// newEngine builds an Engine with the built-in atomic types registered,
// plus the embedded example pipelines (spec §4.3 re-validation requires
// and/or/not to exist first).
func newEngine() *engine.Engine {
	e := engine.New()
	builtins.RegisterAll(e.Registry())
	if err := e.Registry().LoadBuiltins(); err != nil {
		plog.New("cli").Warn().Err(err).Msg("failed to load embedded built-in pipelines")
	}
	return e
}

// loadDescriptorAsType reads the descriptor file at path, registers it
// on r under its module_type_name (or file stem if unset), and returns
// that type name.
func loadDescriptorAsType(r *registry.Registry, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading descriptor: %w", err)
	}
	d, err := config.ParseDescriptorBytes(data)
	if err != nil {
		return "", fmt.Errorf("parsing descriptor: %w", err)
	}

	name := d.ModuleTypeName
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := r.RegisterPipeline(name, d); err != nil {
		return "", err
	}
	return name, nil
}
