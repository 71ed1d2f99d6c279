package commands

import (
	"context"
	"errors"

	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
)

// ExitCode maps an error returned from a command's RunE to the process
// exit code spec.md §6 names: 0 success, 2 configuration/validation
// failure, 3 cyclic pipeline, 4 runtime failure, 5 cancelled/timeout.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var cyclic *pipeflowerr.CyclicDependencyError
	if errors.As(err, &cyclic) {
		return 3
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 5
	}
	var cancelled *pipeflowerr.CancelledError
	var timeout *pipeflowerr.TimeoutError
	if errors.As(err, &cancelled) || errors.As(err, &timeout) {
		return 5
	}

	var unknownType *pipeflowerr.UnknownTypeError
	var dupAlias *pipeflowerr.DuplicateAliasError
	var badLink *pipeflowerr.BadInputLinkError
	var typeMismatch *pipeflowerr.TypeMismatchError
	var unknownPort *pipeflowerr.UnknownPortError
	var invalidField *pipeflowerr.InvalidConfigFieldError
	var missingBinding *pipeflowerr.MissingBindingError
	switch {
	case errors.As(err, &unknownType),
		errors.As(err, &dupAlias),
		errors.As(err, &badLink),
		errors.As(err, &typeMismatch),
		errors.As(err, &unknownPort),
		errors.As(err, &invalidField),
		errors.As(err, &missingBinding):
		return 2
	}

	return 4
}
