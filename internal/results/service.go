package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/logger"
	syncx "github.com/mind-engage/mindengage-grades/internal/sync"
)

var (
	// ErrInvalidModel wraps the structural errors of a rejected grading model.
	ErrInvalidModel = errors.New("invalid grading model")
	// ErrBadReference is returned for ids that do not belong to the course.
	ErrBadReference = errors.New("reference outside course")
)

// EventRecorder receives change notifications; syncx.EventRepo is one.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, payload any) error
}

type Service struct {
	store   course.Store
	plans   *grading.PlanCache
	metrics *Metrics
	events  EventRecorder
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *Metrics) Option         { return func(s *Service) { s.metrics = m } }
func WithEvents(e EventRecorder) Option     { return func(s *Service) { s.events = e } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store course.Store, plans *grading.PlanCache, opts ...Option) *Service {
	if plans == nil {
		plans = grading.NewPlanCache(0)
	}
	s := &Service{store: store, plans: plans, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plans exposes the plan cache, e.g. for metrics.
func (s *Service) Plans() *grading.PlanCache { return s.plans }

// SaveModel validates m and stores it. Invalid models are not stored; the
// validation result is returned either way.
func (s *Service) SaveModel(ctx context.Context, m course.GradingModel) (course.GradingModel, grading.ValidationResult, error) {
	if _, err := s.store.GetCourse(ctx, m.CourseID); err != nil {
		return course.GradingModel{}, grading.ValidationResult{}, err
	}
	if m.CoursePartID != nil {
		parts, err := s.store.ListCourseParts(ctx, m.CourseID)
		if err != nil {
			return course.GradingModel{}, grading.ValidationResult{}, err
		}
		if !lo.ContainsBy(parts, func(p course.CoursePart) bool { return p.ID == *m.CoursePartID }) {
			return course.GradingModel{}, grading.ValidationResult{},
				fmt.Errorf("course part %d: %w", *m.CoursePartID, ErrBadReference)
		}
	}

	res := grading.Validate(&m.Graph)
	if !res.OK() {
		s.metrics.Rejected()
		logger.Warn(ctx, "grading model rejected", "course", m.CourseID, "model", m.ID, "errors", len(res.Errors))
		return course.GradingModel{}, res, fmt.Errorf("%w: %w", ErrInvalidModel, res.Err())
	}

	saved, err := s.store.SaveModel(ctx, m)
	if err != nil {
		return course.GradingModel{}, res, err
	}
	s.plans.Invalidate(saved.ID)
	s.record(ctx, syncx.TypeModelSaved, strconv.Itoa(saved.ID), map[string]any{
		"courseId": saved.CourseID,
		"modelId":  saved.ID,
		"version":  saved.Version,
	})
	logger.Info(ctx, "grading model saved", "course", saved.CourseID, "model", saved.ID, "version", saved.Version)
	return saved, res, nil
}

// AddGrades stores raw grades for a task of the course.
func (s *Service) AddGrades(ctx context.Context, courseID, taskID int, grades []course.TaskGrade) ([]course.TaskGrade, error) {
	tasks, err := s.store.ListCourseTasks(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !lo.ContainsBy(tasks, func(t course.CourseTask) bool { return t.ID == taskID }) {
		return nil, fmt.Errorf("course task %d: %w", taskID, course.ErrNotFound)
	}
	added, err := s.store.AddGrades(ctx, taskID, grades)
	if err != nil {
		return nil, err
	}
	s.record(ctx, syncx.TypeGradeAdded, strconv.Itoa(taskID), map[string]any{
		"courseId": courseID,
		"taskId":   taskID,
		"gradeIds": lo.Map(added, func(g course.TaskGrade, _ int) int64 { return g.ID }),
	})
	return added, nil
}

// CourseResults selects every student's authoritative task grades under
// policy as of at, then runs the two-tier evaluation of the model.
func (s *Service) CourseResults(ctx context.Context, courseID, modelID int, policy grading.SelectPolicy, at time.Time) (*grading.CourseResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	started := time.Now()

	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	model, err := s.store.GetModel(ctx, courseID, modelID)
	if err != nil {
		return nil, err
	}
	parts, err := s.store.ListCourseParts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListCourseTasks(ctx, courseID)
	if err != nil {
		return nil, err
	}
	models, err := s.store.ListModels(ctx, courseID)
	if err != nil {
		return nil, err
	}
	grades, err := s.store.ListGrades(ctx, courseID)
	if err != nil {
		return nil, err
	}

	partByID := lo.KeyBy(parts, func(p course.CoursePart) int { return p.ID })
	taskByID := lo.KeyBy(tasks, func(t course.CourseTask) int { return t.ID })
	expiry := func(taskID int) *time.Time {
		return partByID[taskByID[taskID].CoursePartID].ExpiryDate
	}

	sources := make([]grading.Source, 0, len(parts)+len(tasks))
	for _, t := range tasks {
		sources = append(sources, grading.Source{ID: t.ID, Kind: grading.SourceTask, MaxValue: t.MaxGrade, ExpiresAt: expiry(t.ID)})
	}
	for _, p := range parts {
		sources = append(sources, grading.Source{ID: p.ID, Kind: grading.SourceCoursePart, MaxValue: p.MaxGrade, ExpiresAt: p.ExpiryDate})
	}

	subjects, err := selectSubjects(grades, expiry, policy, at)
	if err != nil {
		return nil, err
	}

	in := grading.CourseInput{
		Final:    model.Engine(),
		Scale:    c.Scale,
		Sources:  sources,
		Subjects: subjects,
		Compile:  s.plans.Plan,
	}
	for _, m := range models {
		if m.CoursePartID != nil && m.ID != model.ID {
			in.Parts = append(in.Parts, m.Engine())
		}
	}

	out, err := grading.EvaluateCourse(in)
	if err != nil {
		s.metrics.Rejected()
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	for _, e := range out.Excluded {
		logger.Warn(ctx, "course part model excluded", "course", courseID, "model", e.ModelID, "part", e.CoursePartID, "reason", e.Reason)
	}
	s.metrics.Excluded(len(out.Excluded))
	s.metrics.Evaluated("course", len(subjects), time.Since(started))
	logger.Debug(ctx, "course results evaluated", "course", courseID, "model", modelID, "students", len(subjects))
	return out, nil
}

// selectSubjects groups raw grades per student and task and reduces them to
// one value per task.
func selectSubjects(grades []course.TaskGrade, expiry func(int) *time.Time, policy grading.SelectPolicy, at time.Time) ([]grading.CourseSubject, error) {
	byStudent := map[int]map[int][]grading.DatedRecord{}
	for _, g := range grades {
		recs, ok := byStudent[g.StudentID]
		if !ok {
			recs = map[int][]grading.DatedRecord{}
			byStudent[g.StudentID] = recs
		}
		recs[g.CourseTaskID] = append(recs[g.CourseTaskID], g.Record())
	}

	students := lo.Keys(byStudent)
	sort.Ints(students)
	out := make([]grading.CourseSubject, 0, len(students))
	for _, id := range students {
		values, err := grading.SelectSourceValues(byStudent[id], expiry, policy, at)
		if err != nil {
			return nil, err
		}
		out = append(out, grading.CourseSubject{ID: grading.SubjectID(id), Tasks: values})
	}
	return out, nil
}

// Preview evaluates a stored model against ad-hoc source values.
func (s *Service) Preview(ctx context.Context, courseID, modelID int, subjects []grading.Subject) (map[grading.SubjectID]grading.Result, error) {
	started := time.Now()
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	m, err := s.store.GetModel(ctx, courseID, modelID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.Plan(m.Engine())
	if err != nil {
		s.metrics.Rejected()
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	check, err := s.rangeCheck(ctx, c, m)
	if err != nil {
		return nil, err
	}
	out := grading.EvaluateBatchPlan(plan, subjects)
	for id, r := range out {
		r.Warnings = append(r.Warnings, check(r.TerminalValue)...)
		out[id] = r
	}
	s.metrics.Evaluated("preview", len(subjects), time.Since(started))
	return out, nil
}

// rangeCheck returns the terminal value check of m: the course scale for a
// final-grade model, the part maximum for a course-part model.
func (s *Service) rangeCheck(ctx context.Context, c course.Course, m course.GradingModel) (func(float64) []grading.Warning, error) {
	if m.CoursePartID == nil {
		return func(v float64) []grading.Warning { return grading.CheckRange(v, c.Scale) }, nil
	}
	parts, err := s.store.ListCourseParts(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	part, ok := lo.Find(parts, func(p course.CoursePart) bool { return p.ID == *m.CoursePartID })
	if !ok {
		return nil, fmt.Errorf("course part %d: %w", *m.CoursePartID, course.ErrNotFound)
	}
	return func(v float64) []grading.Warning { return grading.CheckPartRange(v, part.MaxGrade) }, nil
}

// PreviewModels previews several models of a course concurrently.
func (s *Service) PreviewModels(ctx context.Context, courseID int, modelIDs []int, subjects []grading.Subject) (map[int]map[grading.SubjectID]grading.Result, error) {
	var (
		mu  sync.Mutex
		out = make(map[int]map[grading.SubjectID]grading.Result, len(modelIDs))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range lo.Uniq(modelIDs) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Preview(ctx, courseID, id, subjects)
			if err != nil {
				return fmt.Errorf("grading model %d: %w", id, err)
			}
			mu.Lock()
			out[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, typ, key, payload); err != nil {
		logger.Error(ctx, "event log append failed", "type", typ, "key", key, "err", err)
	}
}
