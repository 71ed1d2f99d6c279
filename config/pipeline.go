// Package config parses pipeline/module descriptors (YAML or JSON) into
// the in-memory shape the compiler consumes, and supplies ValueSpec, the
// static/dynamic value abstraction used for schema defaults and
// built-in module configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"gopkg.in/yaml.v3"
)

// ModuleDescriptor is {module_type, module_config, meta} per spec §3,
// plus the fields a pipeline's child descriptor carries: an optional
// explicit alias and its input_links.
type ModuleDescriptor struct {
	ModuleType   string         `yaml:"module_type" json:"module_type"`
	ModuleAlias  string         `yaml:"module_alias,omitempty" json:"module_alias,omitempty"`
	ModuleConfig map[string]any `yaml:"module_config,omitempty" json:"module_config,omitempty"`
	InputLinks   map[string]any `yaml:"input_links,omitempty" json:"input_links,omitempty"`
}

// PipelineDescriptor is a module descriptor whose config carries the
// list of children and the workflow-level input/output aliasing, per
// spec §3 and §6.
type PipelineDescriptor struct {
	ModuleTypeName string              `yaml:"module_type_name,omitempty" json:"module_type_name,omitempty"`
	Doc            string              `yaml:"doc,omitempty" json:"doc,omitempty"`
	Modules        []ModuleDescriptor  `yaml:"modules" json:"modules"`
	InputAliases   map[string]string   `yaml:"input_aliases,omitempty" json:"input_aliases,omitempty"`
	OutputAliases  map[string]string   `yaml:"output_aliases,omitempty" json:"output_aliases,omitempty"`
	Variables      map[string]any      `yaml:"variables,omitempty" json:"variables,omitempty"`
	ExposeAll      bool                `yaml:"expose_all_outputs,omitempty" json:"expose_all_outputs,omitempty"`
}

// ParseDescriptorBytes decodes data as a PipelineDescriptor. The file
// extension only decides whether registry.LoadDirectory picks a file up
// (see IsDescriptorFile); JSON is a subset of YAML, so a single
// yaml.v3 unmarshal handles both formats.
func ParseDescriptorBytes(data []byte) (*PipelineDescriptor, error) {
	var d PipelineDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline descriptor: %w", err)
	}
	if len(d.Modules) == 0 {
		return nil, fmt.Errorf("pipeline descriptor has no modules")
	}
	return &d, nil
}

// IsDescriptorFile reports whether path's extension is one the registry
// directory scanner picks up (spec §6: ".yaml|.yml|.json").
func IsDescriptorFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// InputLinkRef is the normalized {module_id, value_name} form every
// input_links shorthand parses into (spec §4.3).
type InputLinkRef struct {
	ModuleID  string
	ValueName string
}

// ParseInputLink normalizes one input_links entry for port p into an
// InputLinkRef. Recognized shapes:
//
//	(a) string "alias.port" or "alias" (port defaults to p)
//	(b) mapping {module_id: alias, output_name: port}
//	(c) two-element sequence [alias, port]
func ParseInputLink(port string, raw any) (InputLinkRef, error) {
	switch v := raw.(type) {
	case string:
		if idx := strings.IndexByte(v, '.'); idx >= 0 {
			return InputLinkRef{ModuleID: v[:idx], ValueName: v[idx+1:]}, nil
		}
		return InputLinkRef{ModuleID: v, ValueName: port}, nil

	case map[string]any:
		moduleID, _ := v["module_id"].(string)
		valueName, hasValueName := v["output_name"].(string)
		if moduleID == "" {
			return InputLinkRef{}, pipeflowerr.ErrBadInputLink(port, raw)
		}
		if !hasValueName || valueName == "" {
			valueName = port
		}
		return InputLinkRef{ModuleID: moduleID, ValueName: valueName}, nil

	case []any:
		if len(v) != 2 {
			return InputLinkRef{}, pipeflowerr.ErrBadInputLink(port, raw)
		}
		alias, ok1 := v[0].(string)
		portName, ok2 := v[1].(string)
		if !ok1 || !ok2 {
			return InputLinkRef{}, pipeflowerr.ErrBadInputLink(port, raw)
		}
		return InputLinkRef{ModuleID: alias, ValueName: portName}, nil

	default:
		return InputLinkRef{}, pipeflowerr.ErrBadInputLink(port, raw)
	}
}

// ParseInputLinks normalizes an entire input_links map.
func ParseInputLinks(raw map[string]any) (map[string]InputLinkRef, error) {
	result := make(map[string]InputLinkRef, len(raw))
	for port, v := range raw {
		ref, err := ParseInputLink(port, v)
		if err != nil {
			return nil, err
		}
		result[port] = ref
	}
	return result, nil
}
