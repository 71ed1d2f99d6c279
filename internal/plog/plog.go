// Package plog is the structured logging wrapper shared by every
// pipeflow package. It exists so compiler warnings, executor stage
// timing, and registry load warnings share one configurable sink
// instead of each package reaching for fmt.Printf directly.
package plog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	writer  io.Writer = os.Stderr
	level             = zerolog.InfoLevel
)

// SetOutput redirects every subsequently created logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	writer = w
}

// SetLevel sets the minimum level every subsequently created logger
// emits at.
func SetLevel(l zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// New returns a component-scoped logger, e.g. plog.New("compiler").
func New(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zerolog.New(writer).Level(level).With().Timestamp().Str("component", component).Logger()
}
