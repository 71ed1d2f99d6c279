// Package pipeflowerr defines the typed error taxonomy shared by every
// pipeflow package: configuration errors raised at compile time,
// structural errors raised while compiling a graph, and runtime errors
// raised while a pipeline is executing.
package pipeflowerr

import "fmt"

// Configuration errors — raised at compile time, prevent structure creation.

// UnknownTypeError is returned when a string type name does not resolve
// in a schema or module registry.
type UnknownTypeError struct {
	Kind string // "schema" or "module"
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown %s type: %q", e.Kind, e.Name)
}

func ErrUnknownType(kind, name string) error {
	return &UnknownTypeError{Kind: kind, Name: name}
}

// IncompatibleDefaultError is returned when a schema default does not
// match its declared type.
type IncompatibleDefaultError struct {
	Type    string
	Default any
}

func (e *IncompatibleDefaultError) Error() string {
	return fmt.Sprintf("default value %v is not compatible with type %q", e.Default, e.Type)
}

func ErrIncompatibleDefault(typ string, def any) error {
	return &IncompatibleDefaultError{Type: typ, Default: def}
}

// DuplicateAliasError is returned when two children of the same pipeline
// share an alias.
type DuplicateAliasError struct {
	Alias string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("duplicate module alias: %q", e.Alias)
}

func ErrDuplicateAlias(alias string) error {
	return &DuplicateAliasError{Alias: alias}
}

// BadInputLinkError is returned when an input_links entry cannot be
// parsed into any of the recognized shorthand forms.
type BadInputLinkError struct {
	Port  string
	Value any
}

func (e *BadInputLinkError) Error() string {
	return fmt.Sprintf("input link for port %q has an unrecognized shape: %#v", e.Port, e.Value)
}

func ErrBadInputLink(port string, value any) error {
	return &BadInputLinkError{Port: port, Value: value}
}

// TypeMismatchError is returned when two connected ports declare
// incompatible value types.
type TypeMismatchError struct {
	Address string
	Want    string
	Got     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected type %q, got %q", e.Address, e.Want, e.Got)
}

func ErrTypeMismatch(address, want, got string) error {
	return &TypeMismatchError{Address: address, Want: want, Got: got}
}

// UnknownPortError is returned when an operation references a port name
// that does not exist on a bag.
type UnknownPortError struct {
	Port string
}

func (e *UnknownPortError) Error() string {
	return fmt.Sprintf("unknown port: %q", e.Port)
}

func ErrUnknownPort(port string) error {
	return &UnknownPortError{Port: port}
}

// InvalidConfigFieldError is returned when a module_config carries a
// field its type's config schema does not accept.
type InvalidConfigFieldError struct {
	ModuleType string
	Field      string
	Reason     string
}

func (e *InvalidConfigFieldError) Error() string {
	return fmt.Sprintf("module type %q: invalid config field %q: %s", e.ModuleType, e.Field, e.Reason)
}

func ErrInvalidConfigField(moduleType, field, reason string) error {
	return &InvalidConfigFieldError{ModuleType: moduleType, Field: field, Reason: reason}
}

// Structural errors.

// CyclicDependencyError is returned when the execution graph contains a
// directed cycle.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected: %v", e.Chain)
}

func ErrCyclicDependency(chain []string) error {
	return &CyclicDependencyError{Chain: chain}
}

// MissingBindingError is returned when a child input has no resolvable
// source after compilation.
type MissingBindingError struct {
	Address string
	Port    string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("%s: input %q has no bound source", e.Address, e.Port)
}

func ErrMissingBinding(address, port string) error {
	return &MissingBindingError{Address: address, Port: port}
}

// InvariantViolationError signals a state that the engine's own
// invariants should have made impossible; it indicates a concurrency or
// wiring bug, not a user configuration mistake.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

func ErrInvariantViolation(detail string) error {
	return &InvariantViolationError{Detail: detail}
}

// Runtime errors.

// InputLockedError is returned by InputBag.SetValues when the bag's
// writable flag is false.
type InputLockedError struct {
	Port string
}

func (e *InputLockedError) Error() string {
	return fmt.Sprintf("input %q is locked for writing", e.Port)
}

func ErrInputLocked(port string) error {
	return &InputLockedError{Port: port}
}

// ProcessingError wraps a failure raised by a module's Process method.
type ProcessingError struct {
	Address string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: processing failed: %v", e.Address, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func ErrProcessing(address string, cause error) error {
	return &ProcessingError{Address: address, Cause: cause}
}

// StageFailed aggregates the ProcessingErrors of every module that
// failed within one execution stage.
type StageFailed struct {
	Stage     int
	ByAddress map[string]error
}

func (e *StageFailed) Error() string {
	return fmt.Sprintf("stage %d failed: %d module(s) reported an error", e.Stage, len(e.ByAddress))
}

// Unwrap exposes every module failure in the stage so errors.Is/errors.As
// can traverse into the underlying causes (e.g. a context.Canceled or
// *CancelledError wrapped inside one module's ProcessingError).
func (e *StageFailed) Unwrap() []error {
	errs := make([]error, 0, len(e.ByAddress))
	for _, err := range e.ByAddress {
		errs = append(errs, err)
	}
	return errs
}

func ErrStageFailed(stage int, byAddress map[string]error) error {
	return &StageFailed{Stage: stage, ByAddress: byAddress}
}

// CancelledError is returned when a run was stopped via its cancellation
// signal before it completed all stages.
type CancelledError struct {
	Stage int
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled before stage %d completed", e.Stage)
}

func ErrCancelled(stage int) error {
	return &CancelledError{Stage: stage}
}

// TimeoutError is returned when a run's per-run timeout elapsed.
type TimeoutError struct {
	Stage int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run timed out waiting on stage %d", e.Stage)
}

func ErrTimeout(stage int) error {
	return &TimeoutError{Stage: stage}
}
