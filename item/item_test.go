package item

import (
	"errors"
	"testing"

	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Integer)
	require.NoError(t, err)
	return s
}

func TestDataItem_InitialState(t *testing.T) {
	d := New(intSchema(t))
	_, present := d.Value()
	assert.False(t, present)
	assert.False(t, d.Valid())
	assert.NotEmpty(t, d.ID())
}

func TestDataItem_DefaultApplied(t *testing.T) {
	s, err := schema.New(schema.Integer, schema.WithDefault(7))
	require.NoError(t, err)
	d := New(s)

	v, present := d.Value()
	assert.True(t, present)
	assert.Equal(t, 7, v)
	assert.True(t, d.Valid())
}

func TestDataItem_SetAndValid(t *testing.T) {
	d := New(intSchema(t))
	require.NoError(t, d.Set(5))

	v, present := d.Value()
	assert.True(t, present)
	assert.Equal(t, 5, v)
	assert.True(t, d.Valid())
}

func TestDataItem_Equal(t *testing.T) {
	a := New(intSchema(t))
	b := New(intSchema(t))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}

func TestDataItem_ListenersNotifiedInOrder(t *testing.T) {
	d := New(intSchema(t))
	var order []int

	d.AddListener(func(src *DataItem) error {
		order = append(order, 1)
		return nil
	})
	d.AddListener(func(src *DataItem) error {
		order = append(order, 2)
		return nil
	})

	require.NoError(t, d.Set(1))
	assert.Equal(t, []int{1, 2}, order)
}

func TestDataItem_ListenerErrorIsolation(t *testing.T) {
	d := New(intSchema(t))
	var calls int

	d.AddListener(func(src *DataItem) error {
		calls++
		return errors.New("first fails")
	})
	d.AddListener(func(src *DataItem) error {
		calls++
		return errors.New("second also fails")
	})
	d.AddListener(func(src *DataItem) error {
		calls++
		return nil
	})

	err := d.Set(1)
	require.Error(t, err)
	assert.Equal(t, "first fails", err.Error())
	assert.Equal(t, 3, calls, "all listeners must run despite earlier failures")
}

func TestDataItem_Clear(t *testing.T) {
	d := New(intSchema(t))
	require.NoError(t, d.Set(1))
	assert.True(t, d.Valid())

	require.NoError(t, d.Clear())
	_, present := d.Value()
	assert.False(t, present)
	assert.False(t, d.Valid())
}

func TestDataItem_NullableAllowsNil(t *testing.T) {
	s, err := schema.New(schema.Integer, schema.Nullable())
	require.NoError(t, err)
	d := New(s)
	require.NoError(t, d.Set(nil))
	assert.True(t, d.Valid())
}

func TestBag_GetUnknownPort(t *testing.T) {
	b := NewBag([]string{"a"}, map[string]schema.Schema{"a": intSchema(t)})
	_, err := b.Get("missing")
	assert.Error(t, err)
}

func TestBag_SetValuesAndAllValid(t *testing.T) {
	schemas := map[string]schema.Schema{"a": intSchema(t), "b": intSchema(t)}
	b := NewBag([]string{"a", "b"}, schemas)

	assert.False(t, b.AllValid())
	require.NoError(t, b.SetValues(map[string]any{"a": 1, "b": 2}))
	assert.True(t, b.AllValid())

	a, err := b.Get("a")
	require.NoError(t, err)
	v, _ := a.Value()
	assert.Equal(t, 1, v)
}

func TestBag_SetValuesUnknownPort(t *testing.T) {
	b := NewBag([]string{"a"}, map[string]schema.Schema{"a": intSchema(t)})
	err := b.SetValues(map[string]any{"missing": 1})
	assert.Error(t, err)
}

func TestBag_ClearAll(t *testing.T) {
	schemas := map[string]schema.Schema{"a": intSchema(t)}
	b := NewBag([]string{"a"}, schemas)
	require.NoError(t, b.SetValues(map[string]any{"a": 1}))
	require.NoError(t, b.ClearAll())
	assert.False(t, b.AllValid())
}

func TestInputBag_LockedRejectsWrites(t *testing.T) {
	ib := NewInputBag([]string{"a"}, map[string]schema.Schema{"a": intSchema(t)})
	ib.SetWritable(false)

	err := ib.SetValues(map[string]any{"a": 1})
	assert.Error(t, err)
}

func TestInputBag_WritableAcceptsWrites(t *testing.T) {
	ib := NewInputBag([]string{"a"}, map[string]schema.Schema{"a": intSchema(t)})
	require.NoError(t, ib.SetValues(map[string]any{"a": 1}))
	assert.True(t, ib.AllValid())
}

func TestOutputBag_AlwaysWritable(t *testing.T) {
	ob := NewOutputBag([]string{"y"}, map[string]schema.Schema{"y": intSchema(t)})
	require.NoError(t, ob.SetValues(map[string]any{"y": 1}))
	assert.True(t, ob.AllValid())
}
