package pipeflowerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageFailed_UnwrapExposesUnderlyingCauses(t *testing.T) {
	cancelled := ErrCancelled(2)
	err := ErrStageFailed(2, map[string]error{
		"a.b": ErrProcessing("a.b", context.DeadlineExceeded),
		"a.c": ErrProcessing("a.c", cancelled),
	})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var cancelledErr *CancelledError
	assert.True(t, errors.As(err, &cancelledErr))
}

func TestProcessingError_UnwrapReachesCause(t *testing.T) {
	err := ErrProcessing("a.b", context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
}
