package course

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	courses   map[int]Course
	parts     map[int]CoursePart
	tasks     map[int]CourseTask
	models    map[int]GradingModel
	grades    []TaskGrade
	nextModel int
	nextGrade int64
}

func NewInMemoryStore() Store {
	return &memoryStore{
		courses: map[int]Course{},
		parts:   map[int]CoursePart{},
		tasks:   map[int]CourseTask{},
		models:  map[int]GradingModel{},
	}
}

func (m *memoryStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id int) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *memoryStore) PutCoursePart(_ context.Context, p CoursePart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[p.ID] = p
	return nil
}

func (m *memoryStore) ListCourseParts(_ context.Context, courseID int) ([]CoursePart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CoursePart
	for _, p := range m.parts {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) PutCourseTask(_ context.Context, t CourseTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *memoryStore) GetCourseTask(_ context.Context, id int) (CourseTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return CourseTask{}, fmt.Errorf("course task %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *memoryStore) ListCourseTasks(_ context.Context, courseID int) ([]CourseTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CourseTask
	for _, t := range m.tasks {
		if p, ok := m.parts[t.CoursePartID]; ok && p.CourseID == courseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteCourseTask(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("course task %d: %w", id, ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryStore) SaveModel(_ context.Context, gm GradingModel) (GradingModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gm.ID == 0 {
		m.nextModel++
		gm.ID = m.nextModel
		gm.Version = 0
	} else {
		cur, ok := m.models[gm.ID]
		if !ok || cur.CourseID != gm.CourseID {
			return GradingModel{}, fmt.Errorf("grading model %d: %w", gm.ID, ErrNotFound)
		}
		if gm.Version != 0 && gm.Version != cur.Version {
			return GradingModel{}, fmt.Errorf("grading model %d version %d: %w", gm.ID, gm.Version, ErrStaleModel)
		}
		gm.Version = cur.Version
	}
	gm.Version++
	gm.UpdatedAt = time.Now().UTC()
	m.models[gm.ID] = gm
	return gm, nil
}

func (m *memoryStore) GetModel(_ context.Context, courseID, modelID int) (GradingModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gm, ok := m.models[modelID]
	if !ok || gm.CourseID != courseID {
		return GradingModel{}, fmt.Errorf("grading model %d: %w", modelID, ErrNotFound)
	}
	return gm, nil
}

func (m *memoryStore) ListModels(_ context.Context, courseID int) ([]GradingModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GradingModel
	for _, gm := range m.models {
		if gm.CourseID == courseID {
			out = append(out, gm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) AddGrades(_ context.Context, taskID int, grades []TaskGrade) ([]TaskGrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("course task %d: %w", taskID, ErrNotFound)
	}
	out := make([]TaskGrade, 0, len(grades))
	for _, g := range grades {
		g = withDefaults(task, g)
		m.nextGrade++
		g.ID = m.nextGrade
		m.grades = append(m.grades, g)
		out = append(out, g)
	}
	return out, nil
}

func (m *memoryStore) ListGrades(_ context.Context, courseID int) ([]TaskGrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TaskGrade
	for _, g := range m.grades {
		t, ok := m.tasks[g.CourseTaskID]
		if !ok {
			continue
		}
		if p, ok := m.parts[t.CoursePartID]; ok && p.CourseID == courseID {
			out = append(out, g)
		}
	}
	return out, nil
}

// withDefaults binds g to task and fills its expiry from the task's validity.
func withDefaults(task CourseTask, g TaskGrade) TaskGrade {
	g.CourseTaskID = task.ID
	if g.ExpiryDate == nil && task.DaysValid != nil {
		exp := g.Date.AddDate(0, 0, *task.DaysValid)
		g.ExpiryDate = &exp
	}
	return g
}
