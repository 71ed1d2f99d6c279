package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashgrove-labs/pipeflow/item"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolSch() schema.Schema { return schema.Schema{Type: schema.Boolean} }

func okModule(alias string) *module.Atomic {
	return module.NewAtomic(alias, alias, "ok", "", map[string]schema.Schema{"a": boolSch()}, map[string]schema.Schema{"y": boolSch()},
		func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			return outputs.SetValues(map[string]any{"y": true})
		})
}

func failModule(alias string) *module.Atomic {
	return module.NewAtomic(alias, alias, "fail", "", map[string]schema.Schema{"a": boolSch()}, map[string]schema.Schema{"y": boolSch()},
		func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			return errors.New("deliberate failure")
		})
}

func ready(t *testing.T, m *module.Atomic) *module.Atomic {
	t.Helper()
	require.NoError(t, m.Inputs().SetValues(map[string]any{"a": true}))
	return m
}

func TestCooperative_AllSucceed(t *testing.T) {
	m1 := ready(t, okModule("m1"))
	m2 := ready(t, okModule("m2"))

	err := Cooperative{}.RunAll(context.Background(), []module.Module{m1, m2})
	require.NoError(t, err)
}

func TestCooperative_StageFailedAggregatesAndLetsOthersFinish(t *testing.T) {
	good := ready(t, okModule("good"))
	bad := ready(t, failModule("bad"))

	err := Cooperative{}.RunAll(context.Background(), []module.Module{good, bad})
	require.Error(t, err)

	var sf *pipeflowerr.StageFailed
	require.ErrorAs(t, err, &sf)
	assert.Len(t, sf.ByAddress, 1)
	_, hasBad := sf.ByAddress["bad"]
	assert.True(t, hasBad)

	y, gerr := good.Outputs().Get("y")
	require.NoError(t, gerr)
	v, present := y.Value()
	assert.True(t, present)
	assert.Equal(t, true, v)
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewWorkerPool(workers)

	var inFlight int32
	var maxObserved int32
	mods := make([]module.Module, 0, 5)
	for i := 0; i < 5; i++ {
		m := module.NewAtomic("m", "m", "slow", "", map[string]schema.Schema{"a": boolSch()}, map[string]schema.Schema{"y": boolSch()},
			func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					cur := atomic.LoadInt32(&maxObserved)
					if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return outputs.SetValues(map[string]any{"y": true})
			})
		require.NoError(t, m.Inputs().SetValues(map[string]any{"a": true}))
		mods = append(mods, m)
	}

	require.NoError(t, pool.RunAll(context.Background(), mods))
	assert.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(workers))
}

func TestWorkerPool_EmptyStageIsNoOp(t *testing.T) {
	pool := NewWorkerPool(1)
	require.NoError(t, pool.RunAll(context.Background(), nil))
}

func slowModule(alias string, delay time.Duration) *module.Atomic {
	return module.NewAtomic(alias, alias, "slow", "", map[string]schema.Schema{"a": boolSch()}, map[string]schema.Schema{"y": boolSch()},
		func(ctx context.Context, inputs *item.InputBag, outputs *item.OutputBag) error {
			select {
			case <-time.After(delay):
				return outputs.SetValues(map[string]any{"y": true})
			case <-ctx.Done():
				return ctx.Err()
			}
		})
}

func TestCooperative_TimeoutSurfacesAsTimeoutNotStageFailed(t *testing.T) {
	m := ready(t, slowModule("slow", 200*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Cooperative{}.RunAll(ctx, []module.Module{m})
	require.Error(t, err)

	var timeoutErr *pipeflowerr.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	var sf *pipeflowerr.StageFailed
	assert.False(t, errors.As(err, &sf))
}

func TestCooperative_CancelSurfacesAsCancelledNotStageFailed(t *testing.T) {
	m := ready(t, slowModule("slow", 200*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := Cooperative{}.RunAll(ctx, []module.Module{m})
	require.Error(t, err)

	var cancelledErr *pipeflowerr.CancelledError
	assert.ErrorAs(t, err, &cancelledErr)
}
