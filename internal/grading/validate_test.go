package grading_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

// graph builds a Graph from "id:kind" node specs and "from>to" edge specs.
func graph(nodes []string, edges ...string) *grading.Graph {
	g := &grading.Graph{NodeConfig: map[string]grading.NodeConfig{}}
	for _, n := range nodes {
		id, kind, _ := strings.Cut(n, ":")
		g.Nodes = append(g.Nodes, grading.Node{ID: id, Kind: grading.Kind(kind)})
	}
	for _, e := range edges {
		from, to, _ := strings.Cut(e, ">")
		g.Edges = append(g.Edges, grading.Edge{From: from, To: to})
	}
	return g
}

func TestValidateOK(t *testing.T) {
	g := graph(
		[]string{"source-1:source", "source-2:source", "sum:addition", "final:terminal"},
		"source-1>sum", "source-2>sum", "sum>final",
	)
	res := grading.Validate(g)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Warnings)
}

func TestValidateStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		g     *grading.Graph
		kinds []error
	}{
		{
			name:  "no terminal",
			g:     graph([]string{"s:source", "sum:addition"}, "s>sum"),
			kinds: []error{grading.ErrMultipleOrMissingTerminal},
		},
		{
			name:  "two terminals",
			g:     graph([]string{"s:source", "a:terminal", "b:terminal"}, "s>a", "s>b"),
			kinds: []error{grading.ErrMultipleOrMissingTerminal},
		},
		{
			name:  "dangling edge",
			g:     graph([]string{"s:source", "f:terminal"}, "s>f", "ghost>f"),
			kinds: []error{grading.ErrDanglingEdge},
		},
		{
			name:  "starved aggregator",
			g:     graph([]string{"s:source", "avg:average", "sum:addition", "f:terminal"}, "s>sum", "sum>f"),
			kinds: []error{grading.ErrStarvedNode},
		},
		{
			name:  "terminal with two inputs",
			g:     graph([]string{"a:source", "b:source", "f:terminal"}, "a>f", "b>f"),
			kinds: []error{grading.ErrMultipleInputsToTerminal},
		},
		{
			name:  "terminal with outputs",
			g:     graph([]string{"a:source", "f:terminal", "m:max"}, "a>f", "f>m"),
			kinds: []error{grading.ErrTerminalHasOutputs},
		},
		{
			name:  "source with inputs",
			g:     graph([]string{"a:source", "b:source", "f:terminal"}, "a>b", "b>f"),
			kinds: []error{grading.ErrSourceHasInputs},
		},
		{
			name:  "duplicate node",
			g:     graph([]string{"a:source", "a:source", "f:terminal"}, "a>f"),
			kinds: []error{grading.ErrDuplicateNode},
		},
		{
			name:  "unknown kind",
			g:     graph([]string{"a:source", "x:require", "f:terminal"}, "a>x", "x>f"),
			kinds: []error{grading.ErrUnknownKind},
		},
		{
			name:  "round with two inputs",
			g:     graph([]string{"a:source", "b:source", "r:round", "f:terminal"}, "a>r", "b>r", "r>f"),
			kinds: []error{grading.ErrMultipleInputs},
		},
		{
			name:  "cycle",
			g:     graph([]string{"s:source", "a:addition", "b:addition", "f:terminal"}, "s>a", "a>b", "b>a", "b>f"),
			kinds: []error{grading.ErrCycleDetected},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grading.Validate(tt.g)
			require.False(t, res.OK())
			for _, kind := range tt.kinds {
				assert.True(t, res.Has(kind), "want %v in %v", kind, res.Err())
				assert.ErrorIs(t, res.Err(), kind)
			}
		})
	}
}

func TestValidateReportsEveryError(t *testing.T) {
	g := graph([]string{"s:source", "avg:average", "a:terminal", "b:terminal"}, "s>a", "ghost>b")
	res := grading.Validate(g)
	assert.True(t, res.Has(grading.ErrDanglingEdge))
	assert.True(t, res.Has(grading.ErrStarvedNode))
	assert.True(t, res.Has(grading.ErrMultipleOrMissingTerminal))
}

func TestValidateCycleWitness(t *testing.T) {
	g := graph(
		[]string{"s:source", "a:addition", "b:addition", "c:addition", "f:terminal"},
		"s>a", "a>b", "b>c", "c>a", "c>f",
	)
	res := grading.Validate(g)
	require.True(t, res.Has(grading.ErrCycleDetected))

	var se *grading.StructuralError
	for _, e := range res.Errors {
		if errors.Is(e, grading.ErrCycleDetected) {
			se = e
		}
	}
	require.NotNil(t, se)
	assert.Equal(t, []string{"a", "b", "c", "a"}, se.NodeIDs)
	assert.Contains(t, se.Error(), "a -> b -> c -> a")

	// the same graph always yields the same witness
	again := grading.Validate(g)
	assert.Equal(t, res.Err().Error(), again.Err().Error())
}

func TestValidateOrphanSourceIsWarning(t *testing.T) {
	g := graph([]string{"s:source", "lonely:source", "f:terminal"}, "s>f")
	res := grading.Validate(g)
	require.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, grading.WarnOrphanSource, res.Warnings[0].Kind)
	assert.Equal(t, "lonely", res.Warnings[0].NodeID)
}

func TestValidateManualNeedsNoInputs(t *testing.T) {
	g := graph([]string{"m:manual", "f:terminal"}, "m>f")
	assert.True(t, grading.Validate(g).OK())
}

func TestValidateConfig(t *testing.T) {
	base := func() *grading.Graph {
		return graph([]string{"s:source", "x:stepper", "f:terminal"}, "s>x", "x>f")
	}

	g := base()
	g.NodeConfig["x"] = grading.NodeConfig{
		MiddlePoints: []float64{5},
		OutputValues: []grading.StepOutput{{Value: 0}, {Value: 1}},
	}
	assert.True(t, grading.Validate(g).OK())

	g = base()
	g.NodeConfig["x"] = grading.NodeConfig{
		MiddlePoints: []float64{5, 3},
		OutputValues: []grading.StepOutput{{Value: 0}, {Value: 1}},
	}
	assert.True(t, grading.Validate(g).Has(grading.ErrInvalidConfig))

	g = base()
	assert.True(t, grading.Validate(g).Has(grading.ErrInvalidConfig), "stepper without outputs")

	g = graph([]string{"s:source", "r:round", "f:terminal"}, "s>r", "r>f")
	g.NodeConfig["r"] = grading.NodeConfig{Rounding: "round-sideways"}
	assert.True(t, grading.Validate(g).Has(grading.ErrInvalidConfig))

	g = graph([]string{"a:source", "b:source", "avg:average", "f:terminal"}, "a>avg", "b>avg", "avg>f")
	g.NodeConfig["avg"] = grading.NodeConfig{Weights: map[string]float64{"a": -1}}
	assert.True(t, grading.Validate(g).Has(grading.ErrInvalidConfig))

	g = graph([]string{"s:source", "f:terminal"}, "s>f")
	g.NodeConfig["s"] = grading.NodeConfig{MinPoints: 4, OnFail: "explode"}
	assert.True(t, grading.Validate(g).Has(grading.ErrInvalidConfig), "source threshold")
}

func TestTopologicalOrder(t *testing.T) {
	g := graph(
		[]string{"z:source", "b:source", "a:source", "sum:addition", "avg:average", "f:terminal"},
		"z>sum", "b>sum", "a>avg", "sum>avg", "avg>f",
	)
	order, err := grading.TopologicalOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "z", "sum", "avg", "f"}, order)

	for i := 0; i < 5; i++ {
		again, err := grading.TopologicalOrder(g)
		require.NoError(t, err)
		assert.Equal(t, order, again)
	}

	// declaration order does not matter
	shuffled := graph(
		[]string{"f:terminal", "avg:average", "sum:addition", "a:source", "b:source", "z:source"},
		"avg>f", "sum>avg", "a>avg", "b>sum", "z>sum",
	)
	again, err := grading.TopologicalOrder(shuffled)
	require.NoError(t, err)
	assert.Equal(t, order, again)
}

func TestTopologicalOrderCycle(t *testing.T) {
	g := graph([]string{"a:addition", "b:addition"}, "a>b", "b>a")
	_, err := grading.TopologicalOrder(g)
	require.ErrorIs(t, err, grading.ErrCycleDetected)
}
