package compiler

import (
	"context"
	"testing"

	"github.com/ashgrove-labs/pipeflow/config"
	"github.com/ashgrove-labs/pipeflow/executor"
	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/registry"
	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolSch() schema.Schema { return schema.Schema{Type: schema.Boolean} }

func notFactory(alias, address string, cfg map[string]any) (module.Module, error) {
	in := map[string]schema.Schema{"a": boolSch()}
	out := map[string]schema.Schema{"y": boolSch()}
	return module.NewAtomic(alias, address, "not", "", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
		a, err := inputs.Get("a")
		if err != nil {
			return err
		}
		v, _ := a.Value()
		return outputs.SetValues(map[string]any{"y": !v.(bool)})
	}), nil
}

func andFactory(alias, address string, cfg map[string]any) (module.Module, error) {
	in := map[string]schema.Schema{"a": boolSch(), "b": boolSch()}
	out := map[string]schema.Schema{"y": boolSch()}
	return module.NewAtomic(alias, address, "and", "", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
		a, err := inputs.Get("a")
		if err != nil {
			return err
		}
		b, err := inputs.Get("b")
		if err != nil {
			return err
		}
		av, _ := a.Value()
		bv, _ := b.Value()
		return outputs.SetValues(map[string]any{"y": av.(bool) && bv.(bool)})
	}), nil
}

func orFactory(alias, address string, cfg map[string]any) (module.Module, error) {
	in := map[string]schema.Schema{"a": boolSch(), "b": boolSch()}
	out := map[string]schema.Schema{"y": boolSch()}
	return module.NewAtomic(alias, address, "or", "", in, out, func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
		a, err := inputs.Get("a")
		if err != nil {
			return err
		}
		b, err := inputs.Get("b")
		if err != nil {
			return err
		}
		av, _ := a.Value()
		bv, _ := b.Value()
		return outputs.SetValues(map[string]any{"y": av.(bool) || bv.(bool)})
	}), nil
}

func newGateRegistry() *registry.Registry {
	reg := registry.New()
	reg.SetCompileFunc(Compile)
	reg.SetDefaultExecutor(executor.Cooperative{})
	reg.RegisterType("not", notFactory)
	reg.RegisterType("and", andFactory)
	reg.RegisterType("or", orFactory)
	return reg
}

// xorDescriptor reproduces the xor-from-gates composition (spec §8
// scenario 1): A XOR B = (A OR B) AND NOT(A AND B).
func xorDescriptor() *config.PipelineDescriptor {
	return &config.PipelineDescriptor{
		ModuleTypeName: "xor",
		Modules: []config.ModuleDescriptor{
			{ModuleType: "or", ModuleAlias: "or1"},
			{ModuleType: "and", ModuleAlias: "and1"},
			{ModuleType: "not", ModuleAlias: "not1", InputLinks: map[string]any{"a": "and1.y"}},
			{ModuleType: "and", ModuleAlias: "and2", InputLinks: map[string]any{"a": "or1.y", "b": "not1.y"}},
		},
		InputAliases: map[string]string{
			"or1__a": "A", "or1__b": "B",
			"and1__a": "A", "and1__b": "B",
		},
		OutputAliases: map[string]string{"and2__y": "y"},
	}
}

func TestCompile_XorFromGates(t *testing.T) {
	reg := newGateRegistry()
	require.NoError(t, reg.RegisterPipeline("xor", xorDescriptor()))

	factory, err := reg.Resolve("xor")
	require.NoError(t, err)

	for _, tc := range []struct{ a, b, want bool }{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, false},
	} {
		m, err := factory("xor", "", nil)
		require.NoError(t, err)
		p := m.(*module.Pipeline)
		require.NoError(t, p.Inputs().SetValues(map[string]any{"A": tc.a, "B": tc.b}))
		require.NoError(t, p.Process(context.Background()))
		y, err := p.Outputs().Get("y")
		require.NoError(t, err)
		v, present := y.Value()
		require.True(t, present)
		assert.Equal(t, tc.want, v, "xor(%v, %v)", tc.a, tc.b)
	}
}

func TestCompile_StagesAreMonotonic(t *testing.T) {
	reg := newGateRegistry()
	require.NoError(t, reg.RegisterPipeline("xor", xorDescriptor()))

	factory, err := reg.Resolve("xor")
	require.NoError(t, err)
	m, err := factory("xor", "", nil)
	require.NoError(t, err)
	p := m.(*module.Pipeline)

	stageOf := make(map[string]int)
	for i, stage := range p.Structure().Stages {
		for _, c := range stage {
			stageOf[c.Alias()] = i + 1
		}
	}
	for src, targets := range p.Structure().Edges {
		for _, dst := range targets {
			assert.Less(t, stageOf[src], stageOf[dst], "%s -> %s must increase stage", src, dst)
		}
	}
	assert.Equal(t, 1, stageOf["or1"])
	assert.Equal(t, 1, stageOf["and1"])
	assert.Equal(t, 2, stageOf["not1"])
	assert.Equal(t, 3, stageOf["and2"])
}

func TestCompile_CyclicDependencyRejected(t *testing.T) {
	reg := newGateRegistry()
	cyclic := &config.PipelineDescriptor{
		ModuleTypeName: "cyclic",
		Modules: []config.ModuleDescriptor{
			{ModuleType: "not", ModuleAlias: "n1", InputLinks: map[string]any{"a": "n2.y"}},
			{ModuleType: "not", ModuleAlias: "n2", InputLinks: map[string]any{"a": "n1.y"}},
		},
		OutputAliases: map[string]string{"n2__y": "y"},
	}
	require.NoError(t, reg.RegisterPipeline("cyclic", cyclic))

	factory, err := reg.Resolve("cyclic")
	require.NoError(t, err)
	_, err = factory("cyclic", "", nil)
	require.Error(t, err)
	var cyclic *pipeflowerr.CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
}

func TestCompile_DuplicateAliasRejected(t *testing.T) {
	reg := newGateRegistry()
	dup := &config.PipelineDescriptor{
		ModuleTypeName: "dup",
		Modules: []config.ModuleDescriptor{
			{ModuleType: "not", ModuleAlias: "same"},
			{ModuleType: "not", ModuleAlias: "same"},
		},
	}
	require.NoError(t, reg.RegisterPipeline("dup", dup))

	factory, err := reg.Resolve("dup")
	require.NoError(t, err)
	_, err = factory("dup", "", nil)
	require.Error(t, err)
}

func TestCompile_UnreachableWorkflowInputLeavesChildStale(t *testing.T) {
	reg := newGateRegistry()
	d := &config.PipelineDescriptor{
		ModuleTypeName: "partial",
		Modules: []config.ModuleDescriptor{
			{ModuleType: "not", ModuleAlias: "n1"},
			{ModuleType: "not", ModuleAlias: "n2"},
		},
		OutputAliases: map[string]string{"n1__y": "y1", "n2__y": "y2"},
	}
	require.NoError(t, reg.RegisterPipeline("partial", d))

	factory, err := reg.Resolve("partial")
	require.NoError(t, err)
	m, err := factory("partial", "", nil)
	require.NoError(t, err)
	p := m.(*module.Pipeline)

	require.NoError(t, p.Inputs().SetValues(map[string]any{"n1__a": true}))
	require.NoError(t, p.Process(context.Background()))

	n1 := p.Structure().ChildByAlias["n1"]
	n2 := p.Structure().ChildByAlias["n2"]
	assert.Equal(t, "RESULTS_READY", n1.State().String())
	assert.Equal(t, "STALE", n2.State().String())
}
