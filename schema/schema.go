// Package schema declares pipeflow's value-type model: the closed set
// of value types a port may carry, and the per-port Schema combining a
// type with an optional default and nullability (spec §1, §4.1).
package schema

import (
	"fmt"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
)

// Type is the closed, enumerated value-type tag every port schema
// declares. The set is extensible (spec §3) but each tag must carry a
// canonical in-memory representation, checked by Accepts below.
type Type string

const (
	Integer Type = "integer"
	String  Type = "string"
	Boolean Type = "boolean"
	Dict    Type = "dict"
	Table   Type = "table"
)

var registered = map[Type]func(v any) bool{
	Integer: func(v any) bool {
		switch v.(type) {
		case int, int32, int64:
			return true
		default:
			return false
		}
	},
	String:  func(v any) bool { _, ok := v.(string); return ok },
	Boolean: func(v any) bool { _, ok := v.(bool); return ok },
	Dict:    func(v any) bool { _, ok := v.(map[string]any); return ok },
	Table: func(v any) bool {
		switch v.(type) {
		case []any, []string, []int:
			return true
		default:
			return false
		}
	},
}

// RegisterType extends the closed set with a new tag and its
// representation-compatibility check. Intended for callers that add
// custom value types; the five built-in tags above are always present.
func RegisterType(t Type, accepts func(v any) bool) {
	registered[t] = accepts
}

// KnownType reports whether t has been registered.
func KnownType(t Type) bool {
	_, ok := registered[t]
	return ok
}

// Accepts reports whether v's in-memory representation matches t's
// contract.
func Accepts(t Type, v any) bool {
	fn, ok := registered[t]
	if !ok {
		return false
	}
	return fn(v)
}

// Schema is (type, default?, nullable?) per spec §3.
type Schema struct {
	Type Type
	// Default, when non-nil, is applied at item construction: either a
	// config.StaticValue literal or a config.DynamicValue/reference
	// producer evaluated with an empty config.Context.
	Default config.ValueSpec
	// Nullable allows the item's value to be explicitly absent/nil even
	// though the schema declares a concrete type.
	Nullable bool
}

// New builds a Schema for typ, validating that typ is known.
func New(typ Type, opts ...Option) (Schema, error) {
	if !KnownType(typ) {
		return Schema{}, pipeflowerr.ErrUnknownType("schema", string(typ))
	}
	s := Schema{Type: typ}
	for _, opt := range opts {
		opt(&s)
	}
	if s.Default != nil {
		if static, ok := s.Default.GetStaticValue(); ok {
			if !Accepts(typ, static) && !(s.Nullable && static == nil) {
				return Schema{}, pipeflowerr.ErrIncompatibleDefault(string(typ), static)
			}
		}
	}
	return s, nil
}

// Option configures a Schema built via New.
type Option func(*Schema)

// WithDefault attaches a static default literal.
func WithDefault(v any) Option {
	return func(s *Schema) { s.Default = config.NewStaticValue(v) }
}

// WithDynamicDefault attaches a producer (ValueSpec) evaluated at
// item-construction time.
func WithDynamicDefault(v config.ValueSpec) Option {
	return func(s *Schema) { s.Default = v }
}

// Nullable marks the schema as accepting an absent value even once set.
func Nullable() Option {
	return func(s *Schema) { s.Nullable = true }
}

// ResolveDefault evaluates the schema's default, if any, against an
// empty resolution context (spec §4.1: "default may be a literal or a
// zero-arg producer; applied at item construction if present").
func (s Schema) ResolveDefault() (value any, present bool, err error) {
	if s.Default == nil {
		return nil, false, nil
	}
	v, err := s.Default.Resolve(config.Context{})
	if err != nil {
		return nil, false, fmt.Errorf("resolving default for type %s: %w", s.Type, err)
	}
	return v, true, nil
}

// ToSerializable renders the schema as the {type, default?} shape spec
// §4.1 names for introspection/round-tripping.
func (s Schema) ToSerializable() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Nullable {
		out["nullable"] = true
	}
	if s.Default != nil {
		if static, ok := s.Default.GetStaticValue(); ok {
			out["default"] = static
		} else if dyn, ok := s.Default.GetDynamicExpression(); ok {
			out["default"] = "$js:" + dyn.Expression
		}
	}
	return out
}

// CompatibleWith reports whether a value of schema s may flow into a
// port declaring schema other — used by the compiler to enforce spec
// invariant 3 (connection type compatibility).
func (s Schema) CompatibleWith(other Schema) bool {
	return s.Type == other.Type
}
