package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"
)

// Context is the resolution context a ValueSpec is evaluated against:
// the module/workflow-level variables available while computing a
// schema default or a module_config field. It deliberately carries no
// dependency on the item/compiler packages so that config stays a leaf
// package.
type Context struct {
	// Vars holds pipeline-level variables reachable as $var:name and,
	// inside a $js: expression, as the JS global "vars".
	Vars map[string]any
	// Scope holds arbitrary named values reachable inside a $js:
	// expression as the JS global "ctx" (e.g. sibling input values a
	// built-in module config references).
	Scope map[string]any
}

// ValueSpec represents a value that can be static or dynamic.
type ValueSpec interface {
	IsStatic() bool
	GetStaticValue() (any, bool)
	GetDynamicExpression() (DynamicValue, bool)
	// Resolve computes the concrete value of this spec against ctx.
	Resolve(ctx Context) (any, error)
}

// StaticValue is a literal value (number, string, bool, map, slice...).
type StaticValue struct {
	Value any
}

func NewStaticValue(value any) StaticValue {
	return StaticValue{Value: value}
}

func (s StaticValue) IsStatic() bool                             { return true }
func (s StaticValue) GetStaticValue() (any, bool)                { return s.Value, true }
func (s StaticValue) GetDynamicExpression() (DynamicValue, bool) { return DynamicValue{}, false }
func (s StaticValue) Resolve(ctx Context) (any, error)           { return s.Value, nil }

// DynamicValue is a "$js:"-flavored expression evaluated with Goja at
// resolution time.
type DynamicValue struct {
	Language   string // "js" (default) — reserved for future languages
	Expression string
}

func (d DynamicValue) IsStatic() bool                             { return false }
func (d DynamicValue) GetStaticValue() (any, bool)                { return nil, false }
func (d DynamicValue) GetDynamicExpression() (DynamicValue, bool) { return d, true }

func (d DynamicValue) Resolve(ctx Context) (any, error) {
	switch d.Language {
	case "js", "javascript", "":
		return d.resolveJS(ctx)
	default:
		return nil, fmt.Errorf("unsupported expression language: %s", d.Language)
	}
}

func (d DynamicValue) resolveJS(ctx Context) (any, error) {
	runtime := goja.New()

	scope := ctx.Scope
	if scope == nil {
		scope = map[string]any{}
	}
	if err := runtime.Set("ctx", scope); err != nil {
		return nil, fmt.Errorf("failed to set ctx: %w", err)
	}
	if ctx.Vars != nil {
		if err := runtime.Set("vars", ctx.Vars); err != nil {
			return nil, fmt.Errorf("failed to set vars: %w", err)
		}
	}

	wrapped := "(function() {\n return " + d.Expression + "\n})()"
	result, err := runtime.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", d.Expression, err)
	}
	return result.Export(), nil
}

// VarReference resolves to a pipeline-level variable ($var:name).
type VarReference struct {
	Name string
}

func (v VarReference) IsStatic() bool                             { return false }
func (v VarReference) GetStaticValue() (any, bool)                { return nil, false }
func (v VarReference) GetDynamicExpression() (DynamicValue, bool) { return DynamicValue{}, false }

func (v VarReference) Resolve(ctx Context) (any, error) {
	if ctx.Vars == nil {
		return nil, fmt.Errorf("variable %q not found: no variables defined", v.Name)
	}
	value, exists := ctx.Vars[v.Name]
	if !exists {
		return nil, fmt.Errorf("variable %q not found", v.Name)
	}
	return value, nil
}

// EnvReference resolves to an environment variable ($env:NAME).
type EnvReference struct {
	Name string
}

func (e EnvReference) IsStatic() bool                             { return false }
func (e EnvReference) GetStaticValue() (any, bool)                { return nil, false }
func (e EnvReference) GetDynamicExpression() (DynamicValue, bool) { return DynamicValue{}, false }

func (e EnvReference) Resolve(ctx Context) (any, error) {
	value, ok := os.LookupEnv(e.Name)
	if !ok {
		return nil, fmt.Errorf("environment variable %q is not set", e.Name)
	}
	return value, nil
}

// HasDynamicValues reports whether at least one value in values is
// non-static.
func HasDynamicValues(values map[string]ValueSpec) bool {
	for _, v := range values {
		if !v.IsStatic() {
			return true
		}
	}
	return false
}

// ExtractStaticValues extracts only the static values of values into a
// plain map[string]any.
func ExtractStaticValues(values map[string]ValueSpec) map[string]any {
	result := make(map[string]any, len(values))
	for k, v := range values {
		if staticVal, ok := v.GetStaticValue(); ok {
			result[k] = staticVal
		}
	}
	return result
}

// ParseValue converts a raw configuration value (as decoded from
// YAML/JSON) into a ValueSpec. It recognizes the "$js:" prefix for
// dynamic expressions, "$env:" for environment references, and "$var:"
// for pipeline-variable references; any other value is wrapped as a
// StaticValue.
func ParseValue(v any) ValueSpec {
	if str, ok := v.(string); ok {
		switch {
		case strings.HasPrefix(str, "$js:"):
			return DynamicValue{Language: "js", Expression: strings.TrimSpace(strings.TrimPrefix(str, "$js:"))}
		case strings.HasPrefix(str, "$env:"):
			return EnvReference{Name: strings.TrimSpace(strings.TrimPrefix(str, "$env:"))}
		case strings.HasPrefix(str, "$var:"):
			return VarReference{Name: strings.TrimSpace(strings.TrimPrefix(str, "$var:"))}
		}
	}
	return StaticValue{Value: v}
}
