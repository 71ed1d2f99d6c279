package builtins

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGates_TruthTables(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)

	for _, tc := range []struct {
		typeName string
		a, b     bool
		want     bool
	}{
		{"and", true, true, true},
		{"and", true, false, false},
		{"or", false, false, false},
		{"or", false, true, true},
	} {
		factory, err := reg.Resolve(tc.typeName)
		require.NoError(t, err)
		m, err := factory(tc.typeName, "", nil)
		require.NoError(t, err)
		require.NoError(t, m.Inputs().SetValues(map[string]any{"a": tc.a, "b": tc.b}))
		require.NoError(t, m.Process(context.Background()))
		y, err := m.Outputs().Get("y")
		require.NoError(t, err)
		v, present := y.Value()
		require.True(t, present)
		assert.Equal(t, tc.want, v, "%s(%v, %v)", tc.typeName, tc.a, tc.b)
	}
}

func TestNot_NegatesInput(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("not")
	require.NoError(t, err)
	m, err := factory("not", "", nil)
	require.NoError(t, err)
	require.NoError(t, m.Inputs().SetValues(map[string]any{"a": true}))
	require.NoError(t, m.Process(context.Background()))
	y, err := m.Outputs().Get("y")
	require.NoError(t, err)
	v, _ := y.Value()
	assert.Equal(t, false, v)
}

func TestDummy_PassesValueThroughUnchanged(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("dummy")
	require.NoError(t, err)
	m, err := factory("dummy", "", map[string]any{"type": "string"})
	require.NoError(t, err)

	require.NoError(t, m.Inputs().SetValues(map[string]any{"value": "hello"}))
	require.NoError(t, m.Process(context.Background()))
	out, err := m.Outputs().Get("value")
	require.NoError(t, err)
	v, _ := out.Value()
	assert.Equal(t, "hello", v)
}

func TestDummy_RespectsConfiguredDelay(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("dummy")
	require.NoError(t, err)
	m, err := factory("dummy", "", map[string]any{"type": "string", "delay_ms": 20})
	require.NoError(t, err)
	require.NoError(t, m.Inputs().SetValues(map[string]any{"value": "x"}))

	start := time.Now()
	require.NoError(t, m.Process(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDummy_CancelledDuringDelayReturnsError(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("dummy")
	require.NoError(t, err)
	m, err := factory("dummy", "", map[string]any{"type": "string", "delay_ms": 500})
	require.NoError(t, err)
	require.NoError(t, m.Inputs().SetValues(map[string]any{"value": "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err = m.Process(ctx)
	require.Error(t, err)
}

func TestTokenize_SplitsOnWhitespace(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("tokenize")
	require.NoError(t, err)
	m, err := factory("tokenize", "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Inputs().SetValues(map[string]any{"text": "the quick brown fox"}))
	require.NoError(t, m.Process(context.Background()))
	tokensItem, err := m.Outputs().Get("tokens")
	require.NoError(t, err)
	v, _ := tokensItem.Value()
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, v)
}

func TestReadFile_ReturnsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi there"), 0o644))

	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("read_file")
	require.NoError(t, err)
	m, err := factory("read_file", "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Inputs().SetValues(map[string]any{"path": path}))
	require.NoError(t, m.Process(context.Background()))
	content, err := m.Outputs().Get("content")
	require.NoError(t, err)
	v, _ := content.Value()
	assert.Equal(t, "hi there", v)
}

func TestReadFile_MissingFileErrors(t *testing.T) {
	reg := registry.New()
	RegisterAll(reg)
	factory, err := reg.Resolve("read_file")
	require.NoError(t, err)
	m, err := factory("read_file", "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Inputs().SetValues(map[string]any{"path": "/nonexistent/does-not-exist.txt"}))
	err = m.Process(context.Background())
	require.Error(t, err)
}
