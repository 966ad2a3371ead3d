package course

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// ErrStaleModel is returned when a model is saved over a newer version.
var ErrStaleModel = errors.New("grading model was modified concurrently")

// Store persists courses, models and raw grades. Computed grades are never stored.
type Store interface {
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id int) (Course, error)

	PutCoursePart(ctx context.Context, p CoursePart) error
	ListCourseParts(ctx context.Context, courseID int) ([]CoursePart, error)

	PutCourseTask(ctx context.Context, t CourseTask) error
	GetCourseTask(ctx context.Context, id int) (CourseTask, error)
	ListCourseTasks(ctx context.Context, courseID int) ([]CourseTask, error)
	DeleteCourseTask(ctx context.Context, id int) error

	// SaveModel inserts a model when ID is 0, otherwise updates it. A non-zero
	// Version must match the stored one. The saved model is returned with its
	// new version.
	SaveModel(ctx context.Context, m GradingModel) (GradingModel, error)
	GetModel(ctx context.Context, courseID, modelID int) (GradingModel, error)
	ListModels(ctx context.Context, courseID int) ([]GradingModel, error)

	// AddGrades stores grades for one task and returns them with ids assigned.
	AddGrades(ctx context.Context, taskID int, grades []TaskGrade) ([]TaskGrade, error)
	ListGrades(ctx context.Context, courseID int) ([]TaskGrade, error)
}
