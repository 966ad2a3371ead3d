package grading

import (
	"errors"
	"fmt"
)

// SubjectID identifies a student. Results are keyed by it; callers must not
// rely on any ordering.
type SubjectID int

// Subject pairs a student with the values of a graph's source nodes.
type Subject struct {
	ID           SubjectID
	SourceValues map[string]SourceValue
}

// EvaluateBatch validates and orders g once, then evaluates it per subject.
func EvaluateBatch(g *Graph, subjects []Subject) (map[SubjectID]Result, error) {
	plan, err := Compile(g)
	if err != nil {
		return nil, err
	}
	return EvaluateBatchPlan(plan, subjects), nil
}

// EvaluateBatchPlan evaluates an already compiled plan per subject.
func EvaluateBatchPlan(plan *Plan, subjects []Subject) map[SubjectID]Result {
	out := make(map[SubjectID]Result, len(subjects))
	for _, s := range subjects {
		out[s.ID] = plan.Evaluate(s.SourceValues)
	}
	return out
}

// Model is a grading model as handed over by storage. A nil CoursePartID
// marks a final-grade model.
type Model struct {
	ID           int    `json:"id"`
	CoursePartID *int   `json:"coursePartId"`
	Graph        *Graph `json:"graphStructure"`
	Archived     bool   `json:"archived"`
	Version      int64  `json:"version,omitempty"`
}

// IsFinal reports whether m computes the course's final grade.
func (m Model) IsFinal() bool { return m.CoursePartID == nil }

// Compiler turns a model into a plan; PlanCache.Plan is one.
type Compiler func(Model) (*Plan, error)

func compileModel(m Model) (*Plan, error) {
	if m.Graph == nil {
		return nil, errors.New("grading model has no graph")
	}
	return Compile(m.Graph)
}

// CourseSubject carries one student's selected task values, keyed by task id.
type CourseSubject struct {
	ID    SubjectID
	Tasks map[int]SourceValue
}

// CourseInput is everything the two-tier evaluation needs.
type CourseInput struct {
	Final Model
	// Parts are the course-part models of the course; only those referenced by
	// Final are evaluated.
	Parts []Model
	Scale Scale
	// Sources lists the course's existing tasks and course parts. Part models
	// referencing a task missing here are excluded; a nil Sources skips the check.
	Sources  []Source
	Subjects []CourseSubject
	// Compile defaults to compiling every model afresh.
	Compile Compiler
}

// ExcludedModel names a course-part model left out of an evaluation.
type ExcludedModel struct {
	ModelID      int    `json:"modelId"`
	CoursePartID int    `json:"coursePartId"`
	Reason       string `json:"reason"`
}

// SubjectResult is a student's final result plus the course-part results that fed it.
type SubjectResult struct {
	Final Result         `json:"final"`
	Parts map[int]Result `json:"parts,omitempty"`
}

// CourseResult is the outcome of EvaluateCourse.
type CourseResult struct {
	Subjects map[SubjectID]SubjectResult `json:"subjects"`
	Excluded []ExcludedModel             `json:"excluded,omitempty"`
}

// boundModel is a compiled model with its source nodes resolved.
type boundModel struct {
	model   Model
	partID  int
	max     float64
	plan    *Plan
	tasks   map[string]int // source node -> task id
	parts   map[string]int // source node -> course part id
	unbound []string       // source nodes referencing nothing known
}

func bind(m Model, plan *Plan) *boundModel {
	b := &boundModel{model: m, plan: plan, tasks: map[string]int{}, parts: map[string]int{}}
	if m.CoursePartID != nil {
		b.partID = *m.CoursePartID
	}
	resolve := m.Graph.SourceRef
	if m.IsFinal() {
		resolve = m.Graph.FinalSourceRef
	}
	for _, id := range m.Graph.SourceNodes() {
		kind, ref, ok := resolve(id)
		switch {
		case !ok:
			b.unbound = append(b.unbound, id)
		case kind == SourceCoursePart:
			b.parts[id] = ref
		default:
			b.tasks[id] = ref
		}
	}
	return b
}

// sourceValues builds the per-node inputs of one subject. found reports
// whether at least one source had a value.
func (b *boundModel) sourceValues(tasks map[int]SourceValue, parts map[int]SourceValue) (map[string]SourceValue, bool) {
	sv := make(map[string]SourceValue, len(b.tasks)+len(b.parts))
	found := false
	put := func(node string, v SourceValue, ok bool) {
		if !ok {
			v = Absent()
		}
		if !v.Missing {
			found = true
		}
		sv[node] = v
	}
	for node, task := range b.tasks {
		v, ok := tasks[task]
		put(node, v, ok)
	}
	for node, part := range b.parts {
		v, ok := parts[part]
		put(node, v, ok)
	}
	for _, node := range b.unbound {
		sv[node] = Absent()
	}
	return sv, found
}

// EvaluateCourse runs two-tier evaluation. For a final-grade model every
// course-part model it references is evaluated first and each part's terminal
// value feeds the matching source of the final graph. Unusable part models are
// excluded and their sources become missing. A course-part model given as
// Final is evaluated directly against task values.
func EvaluateCourse(in CourseInput) (*CourseResult, error) {
	compile := in.Compile
	if compile == nil {
		compile = compileModel
	}
	if in.Final.Graph == nil {
		return nil, errors.New("grading model has no graph")
	}
	finalPlan, err := compile(in.Final)
	if err != nil {
		return nil, fmt.Errorf("grading model %d: %w", in.Final.ID, err)
	}
	final := bind(in.Final, finalPlan)

	maxByPart := map[int]float64{}
	var knownTasks map[int]bool
	if in.Sources != nil {
		knownTasks = map[int]bool{}
	}
	for _, s := range in.Sources {
		switch s.Kind {
		case SourceCoursePart:
			maxByPart[s.ID] = s.MaxValue
		default:
			knownTasks[s.ID] = true
		}
	}
	final.max = maxByPart[final.partID]

	out := &CourseResult{Subjects: make(map[SubjectID]SubjectResult, len(in.Subjects))}

	if !in.Final.IsFinal() {
		for _, s := range in.Subjects {
			sv, _ := final.sourceValues(s.Tasks, nil)
			r := final.plan.Evaluate(sv)
			r.Warnings = append(r.Warnings, CheckPartRange(r.TerminalValue, final.max)...)
			out.Subjects[s.ID] = SubjectResult{Final: r}
		}
		return out, nil
	}

	parts, excluded := bindParts(in.Parts, final, knownTasks, maxByPart, compile)
	out.Excluded = excluded

	for _, s := range in.Subjects {
		sr := SubjectResult{Parts: make(map[int]Result, len(parts))}
		partValues := make(map[int]SourceValue, len(parts))
		for _, p := range parts {
			sv, found := p.sourceValues(s.Tasks, nil)
			r := p.plan.Evaluate(sv)
			r.Warnings = append(r.Warnings, CheckPartRange(r.TerminalValue, p.max)...)
			sr.Parts[p.partID] = r
			if found {
				partValues[p.partID] = Present(r.TerminalValue)
			}
		}
		sv, _ := final.sourceValues(s.Tasks, partValues)
		r := final.plan.Evaluate(sv)
		if in.Scale != "" {
			r.Warnings = append(r.Warnings, CheckRange(r.TerminalValue, in.Scale)...)
		}
		sr.Final = r
		out.Subjects[s.ID] = sr
	}
	return out, nil
}

// bindParts picks the usable course-part models referenced by final.
func bindParts(models []Model, final *boundModel, knownTasks map[int]bool, maxByPart map[int]float64, compile Compiler) ([]*boundModel, []ExcludedModel) {
	wanted := map[int]bool{}
	for _, part := range final.parts {
		wanted[part] = true
	}

	var (
		usable   []*boundModel
		excluded []ExcludedModel
		taken    = map[int]bool{}
	)
	exclude := func(m Model, why string) {
		excluded = append(excluded, ExcludedModel{ModelID: m.ID, CoursePartID: *m.CoursePartID, Reason: why})
	}
	for _, m := range models {
		if m.IsFinal() || !wanted[*m.CoursePartID] {
			continue
		}
		switch {
		case m.Archived:
			exclude(m, "archived")
			continue
		case taken[*m.CoursePartID]:
			exclude(m, "another model already serves this course part")
			continue
		case m.Graph == nil:
			exclude(m, "no graph")
			continue
		}
		plan, err := compile(m)
		if err != nil {
			exclude(m, err.Error())
			continue
		}
		b := bind(m, plan)
		if len(b.parts) > 0 {
			exclude(m, "course-part models cannot reference other course parts")
			continue
		}
		if knownTasks != nil {
			deleted := false
			for _, task := range b.tasks {
				if !knownTasks[task] {
					deleted = true
					break
				}
			}
			if deleted {
				exclude(m, "references a deleted course task")
				continue
			}
		}
		b.max = maxByPart[b.partID]
		taken[b.partID] = true
		usable = append(usable, b)
	}
	return usable, excluded
}
