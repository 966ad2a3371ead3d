package grading_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

func TestPlanCacheReuse(t *testing.T) {
	cache := grading.NewPlanCache(4)
	m := grading.Model{ID: 1, Version: 1, Graph: aggregate(grading.KindAddition)}

	p1, err := cache.Plan(m)
	require.NoError(t, err)
	p2, err := cache.Plan(m)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	// a new version recompiles even if the graph is unchanged
	m.Version = 2
	p3, err := cache.Plan(m)
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)

	// an edited graph under the same version recompiles as well
	m.Graph = aggregate(grading.KindMax)
	p4, err := cache.Plan(m)
	require.NoError(t, err)
	assert.NotSame(t, p3, p4)
	assert.Equal(t, 1, cache.Size())

	cache.Invalidate(1)
	assert.Equal(t, 0, cache.Size())
}

func TestPlanCacheKeepsRejections(t *testing.T) {
	cache := grading.NewPlanCache(4)
	m := grading.Model{ID: 2, Graph: graph([]string{"a:addition", "b:addition", "f:terminal"}, "a>b", "b>a", "b>f")}
	_, err := cache.Plan(m)
	require.ErrorIs(t, err, grading.ErrCycleDetected)
	_, err = cache.Plan(m)
	require.ErrorIs(t, err, grading.ErrCycleDetected)

	_, err = cache.Plan(grading.Model{ID: 3})
	require.Error(t, err)
}

func TestPlanCacheBounded(t *testing.T) {
	cache := grading.NewPlanCache(2)
	for id := 1; id <= 5; id++ {
		_, err := cache.Plan(grading.Model{ID: id, Graph: aggregate(grading.KindAverage)})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Size())
}

func TestPlanCacheConcurrent(t *testing.T) {
	cache := grading.NewPlanCache(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := grading.Model{ID: i % 4, Graph: aggregate(grading.KindAddition)}
			plan, err := cache.Plan(m)
			if assert.NoError(t, err) {
				res := plan.Evaluate(map[string]grading.SourceValue{"a": grading.Present(1), "b": grading.Present(float64(i))})
				assert.Equal(t, 1+float64(i), res.TerminalValue)
			}
		}(i)
	}
	wg.Wait()
}

func TestGraphHashStable(t *testing.T) {
	a := aggregate(grading.KindAverage)
	a.NodeConfig["agg"] = grading.NodeConfig{Weights: map[string]float64{"a": 1, "b": 2}}
	b := aggregate(grading.KindAverage)
	b.NodeConfig["agg"] = grading.NodeConfig{Weights: map[string]float64{"b": 2, "a": 1}}

	ha, err := grading.GraphHash(a)
	require.NoError(t, err)
	hb, err := grading.GraphHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	b.NodeConfig["agg"] = grading.NodeConfig{Weights: map[string]float64{"a": 1, "b": 3}}
	hc, err := grading.GraphHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
