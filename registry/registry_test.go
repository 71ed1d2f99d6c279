package registry

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopProcess(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
	return nil
}

func TestLoadDirectory_SkipsBadDescriptorsAndKeepsValidSiblings(t *testing.T) {
	r := New()
	r.RegisterType("leaf", func(alias, address string, cfg map[string]any) (module.Module, error) {
		return module.NewAtomic(alias, address, "leaf", "", nil, nil, nopProcess), nil
	})

	fsys := fstest.MapFS{
		"pipelines/good.yaml": &fstest.MapFile{Data: []byte(`
modules:
  - module_type: leaf
    module_alias: a
`)},
		"pipelines/malformed.yaml": &fstest.MapFile{Data: []byte("not: [valid yaml")},
		"pipelines/unknown_child.yaml": &fstest.MapFile{Data: []byte(`
modules:
  - module_type: does_not_exist
`)},
		"pipelines/also_good.yaml": &fstest.MapFile{Data: []byte(`
module_type_name: also_good
modules:
  - module_type: leaf
    module_alias: b
`)},
	}

	err := r.LoadDirectory(fsys, "pipelines")
	require.NoError(t, err)

	known := r.KnownTypes()
	assert.Contains(t, known, "good")
	assert.Contains(t, known, "also_good")
	assert.NotContains(t, known, "malformed")
	assert.NotContains(t, known, "unknown_child")
}

func TestLoadDirectory_SkipsNonDescriptorFiles(t *testing.T) {
	r := New()
	fsys := fstest.MapFS{
		"pipelines/README.md": &fstest.MapFile{Data: []byte("not a descriptor")},
	}
	require.NoError(t, r.LoadDirectory(fsys, "pipelines"))
	assert.Empty(t, r.KnownTypes())
}

func TestRegisterPipeline_RejectsUnknownChildType(t *testing.T) {
	r := New()
	d, err := config.ParseDescriptorBytes([]byte(`
modules:
  - module_type: nope
`))
	require.NoError(t, err)
	assert.Error(t, r.RegisterPipeline("p", d))
}
