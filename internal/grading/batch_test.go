package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

func TestEvaluateBatchMatchesSingle(t *testing.T) {
	g := graph(
		[]string{"source-1:source", "source-2:source", "avg:average", "r:round", "f:terminal"},
		"source-1>avg", "source-2>avg", "avg>r", "r>f",
	)
	g.NodeConfig["r"] = grading.NodeConfig{Rounding: grading.RoundClosest}

	subjects := []grading.Subject{
		{ID: 1, SourceValues: map[string]grading.SourceValue{"source-1": grading.Present(3), "source-2": grading.Present(4)}},
		{ID: 2, SourceValues: map[string]grading.SourceValue{"source-1": grading.Present(5)}},
		{ID: 3, SourceValues: map[string]grading.SourceValue{"source-2": grading.Absent()}},
	}
	got, err := grading.EvaluateBatch(g, subjects)
	require.NoError(t, err)
	require.Len(t, got, len(subjects))

	order, err := grading.TopologicalOrder(g)
	require.NoError(t, err)
	for _, s := range subjects {
		assert.Equal(t, grading.Evaluate(g, order, s.SourceValues), got[s.ID], "subject %d", s.ID)
	}
	assert.Equal(t, 4.0, got[1].TerminalValue)
	assert.Equal(t, 5.0, got[2].TerminalValue)
}

func TestEvaluateBatchRejectsInvalidGraph(t *testing.T) {
	g := graph([]string{"a:addition", "b:addition", "f:terminal"}, "a>b", "b>a", "b>f")
	_, err := grading.EvaluateBatch(g, []grading.Subject{{ID: 1}})
	require.ErrorIs(t, err, grading.ErrCycleDetected)
}

// partModel is a course-part model summing the given tasks.
func partModel(id, part int, tasks ...int) grading.Model {
	nodes := []string{"sum:addition", "f:terminal"}
	edges := []string{"sum>f"}
	for _, task := range tasks {
		src := grading.SourceNodeID(grading.SourceTask, task)
		nodes = append(nodes, src+":source")
		edges = append(edges, src+">sum")
	}
	return grading.Model{ID: id, CoursePartID: ptr(part), Graph: graph(nodes, edges...)}
}

// finalModel averages the given course parts.
func finalModel(id int, parts ...int) grading.Model {
	nodes := []string{"avg:average", "f:terminal"}
	edges := []string{"avg>f"}
	for _, part := range parts {
		src := grading.SourceNodeID(grading.SourceCoursePart, part)
		nodes = append(nodes, src+":source")
		edges = append(edges, src+">avg")
	}
	return grading.Model{ID: id, Graph: graph(nodes, edges...)}
}

func tasks(values map[int]float64) map[int]grading.SourceValue {
	out := make(map[int]grading.SourceValue, len(values))
	for id, v := range values {
		out[id] = grading.Present(v)
	}
	return out
}

func TestEvaluateCourseTwoTier(t *testing.T) {
	in := grading.CourseInput{
		Final: finalModel(10, 1),
		Parts: []grading.Model{partModel(20, 1, 100, 101)},
		Scale: grading.ScaleNumerical,
		Subjects: []grading.CourseSubject{
			{ID: 7, Tasks: tasks(map[int]float64{100: 1.5, 101: 2.5})},
		},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)
	require.Empty(t, got.Excluded)

	sr := got.Subjects[7]
	assert.Equal(t, 4.0, sr.Parts[1].TerminalValue)
	assert.Equal(t, 4.0, sr.Final.NodeValues["coursepart-1"])
	assert.Equal(t, 4.0, sr.Final.TerminalValue)
	assert.Empty(t, sr.Final.Warnings)
}

func TestEvaluateCourseExclusions(t *testing.T) {
	archived := partModel(21, 2, 100)
	archived.Archived = true
	broken := grading.Model{ID: 22, CoursePartID: ptr(3), Graph: graph([]string{"source-100:source"})}

	in := grading.CourseInput{
		Final: finalModel(10, 1, 2, 3, 4),
		Parts: []grading.Model{
			partModel(20, 1, 100),
			archived,
			broken,
			partModel(23, 4, 100, 999), // task 999 was deleted
			partModel(24, 5, 100),      // not referenced by the final model
		},
		Sources: []grading.Source{
			{ID: 100, Kind: grading.SourceTask},
			{ID: 1, Kind: grading.SourceCoursePart, MaxValue: 10},
		},
		Subjects: []grading.CourseSubject{
			{ID: 1, Tasks: tasks(map[int]float64{100: 3})},
		},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)

	excluded := map[int]string{}
	for _, e := range got.Excluded {
		excluded[e.ModelID] = e.Reason
	}
	assert.Len(t, excluded, 3)
	assert.Equal(t, "archived", excluded[21])
	assert.Contains(t, excluded, 22)
	assert.Contains(t, excluded[23], "deleted")

	sr := got.Subjects[1]
	require.Len(t, sr.Parts, 1)
	assert.Equal(t, 3.0, sr.Final.TerminalValue, "excluded parts do not drag the average down")
	for _, part := range []string{"coursepart-2", "coursepart-3", "coursepart-4"} {
		assert.True(t, sr.Final.Missing[part], part)
	}
	assert.True(t, sr.Final.HasWarning(grading.WarnMissingSource))
}

func TestEvaluateCourseSubjectWithoutRecords(t *testing.T) {
	in := grading.CourseInput{
		Final: finalModel(10, 1, 2),
		Parts: []grading.Model{partModel(20, 1, 100), partModel(21, 2, 200)},
		Subjects: []grading.CourseSubject{
			{ID: 1, Tasks: tasks(map[int]float64{100: 4})},
		},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)

	sr := got.Subjects[1]
	assert.True(t, sr.Parts[2].Missing["f"])
	assert.True(t, sr.Final.Missing["coursepart-2"])
	assert.Equal(t, 4.0, sr.Final.TerminalValue)
}

func TestEvaluateCourseScaleWarnings(t *testing.T) {
	in := grading.CourseInput{
		Final:    finalModel(10, 1),
		Parts:    []grading.Model{partModel(20, 1, 100)},
		Scale:    grading.ScaleNumerical,
		Sources:  []grading.Source{{ID: 100, Kind: grading.SourceTask}, {ID: 1, Kind: grading.SourceCoursePart, MaxValue: 5}},
		Subjects: []grading.CourseSubject{{ID: 1, Tasks: tasks(map[int]float64{100: 6.5})}},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)

	sr := got.Subjects[1]
	assert.True(t, sr.Final.HasWarning(grading.WarnNonIntegerGrade))
	assert.True(t, sr.Final.HasWarning(grading.WarnOutOfRangeGrade))
	assert.True(t, sr.Parts[1].HasWarning(grading.WarnOutOfRangeGrade))
	assert.False(t, sr.Parts[1].HasWarning(grading.WarnNonIntegerGrade))
}

func TestEvaluateCoursePartModelDirectly(t *testing.T) {
	in := grading.CourseInput{
		Final:    partModel(20, 1, 100, 101),
		Sources:  []grading.Source{{ID: 1, Kind: grading.SourceCoursePart, MaxValue: 10}},
		Subjects: []grading.CourseSubject{{ID: 1, Tasks: tasks(map[int]float64{100: 4, 101: 2.5})}},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)
	assert.Equal(t, 6.5, got.Subjects[1].Final.TerminalValue)
	assert.Empty(t, got.Subjects[1].Final.Warnings)
}

func TestEvaluateCourseRejectsInvalidFinal(t *testing.T) {
	in := grading.CourseInput{Final: grading.Model{ID: 1, Graph: graph([]string{"s:source"})}}
	_, err := grading.EvaluateCourse(in)
	require.ErrorIs(t, err, grading.ErrMultipleOrMissingTerminal)
}

func TestEvaluateCourseUsesCompiler(t *testing.T) {
	cache := grading.NewPlanCache(8)
	in := grading.CourseInput{
		Final:    finalModel(10, 1),
		Parts:    []grading.Model{partModel(20, 1, 100)},
		Subjects: []grading.CourseSubject{{ID: 1, Tasks: tasks(map[int]float64{100: 2})}},
		Compile:  cache.Plan,
	}
	_, err := grading.EvaluateCourse(in)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Size())
}

func TestEvaluateCourseEditorSourceIDs(t *testing.T) {
	// the model editor names course-part sources of a final model "source-<part id>"
	final := grading.Model{ID: 10, Graph: graph([]string{"source-1:source", "f:terminal"}, "source-1>f")}
	in := grading.CourseInput{
		Final:    final,
		Parts:    []grading.Model{partModel(20, 1, 100)},
		Subjects: []grading.CourseSubject{{ID: 1, Tasks: tasks(map[int]float64{100: 3, 1: 9})}},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Subjects[1].Final.TerminalValue)
	assert.Equal(t, 3.0, got.Subjects[1].Parts[1].TerminalValue)
}

func TestEvaluateCourseAllTasksDeleted(t *testing.T) {
	in := grading.CourseInput{
		Final:    finalModel(10, 1),
		Parts:    []grading.Model{partModel(20, 1, 100)},
		Sources:  []grading.Source{{ID: 1, Kind: grading.SourceCoursePart, MaxValue: 10}},
		Subjects: []grading.CourseSubject{{ID: 1, Tasks: tasks(map[int]float64{100: 3})}},
	}
	got, err := grading.EvaluateCourse(in)
	require.NoError(t, err)
	require.Len(t, got.Excluded, 1)
	assert.Equal(t, 20, got.Excluded[0].ModelID)
	assert.Contains(t, got.Excluded[0].Reason, "deleted")
	assert.True(t, got.Subjects[1].Final.Missing["coursepart-1"])
}
