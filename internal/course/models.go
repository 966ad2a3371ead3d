package course

import (
	"time"

	"github.com/mind-engage/mindengage-grades/internal/grading"
)

type Course struct {
	ID    int           `json:"id" validate:"required,gt=0"`
	Code  string        `json:"code" validate:"required"`
	Name  string        `json:"name"`
	Scale grading.Scale `json:"gradingScale" validate:"required,oneof=NUMERICAL PASS_FAIL SECOND_NATIONAL_LANGUAGE"`
}

// CoursePart groups tasks. ExpiryDate caps the expiry of every grade of its tasks.
type CoursePart struct {
	ID         int        `json:"id" validate:"required,gt=0"`
	CourseID   int        `json:"courseId"`
	Name       string     `json:"name" validate:"required"`
	MaxGrade   float64    `json:"maxGrade,omitempty" validate:"gte=0"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Archived   bool       `json:"archived"`
}

type CourseTask struct {
	ID           int     `json:"id" validate:"required,gt=0"`
	CoursePartID int     `json:"coursePartId" validate:"required,gt=0"`
	Name         string  `json:"name" validate:"required"`
	MaxGrade     float64 `json:"maxGrade,omitempty" validate:"gte=0"`
	// DaysValid sets the default expiry of new grades.
	DaysValid *int `json:"daysValid,omitempty" validate:"omitempty,gte=0"`
	Archived  bool `json:"archived"`
}

// TaskGrade is one raw grade record. Grades are only ever added.
type TaskGrade struct {
	ID           int64      `json:"id"`
	CourseTaskID int        `json:"courseTaskId"`
	StudentID    int        `json:"studentId" validate:"required,gt=0"`
	Grade        float64    `json:"grade"`
	Date         time.Time  `json:"date" validate:"required"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
}

// Record is the selector view of g.
func (g TaskGrade) Record() grading.DatedRecord {
	return grading.DatedRecord{ID: g.ID, Value: g.Grade, ObservedAt: g.Date, ExpiresAt: g.ExpiryDate}
}

// GradingModel is a stored model document. Version grows on every save.
type GradingModel struct {
	ID           int           `json:"id"`
	CourseID     int           `json:"courseId"`
	CoursePartID *int          `json:"coursePartId"`
	Name         string        `json:"name" validate:"required"`
	Graph        grading.Graph `json:"graphStructure"`
	Archived     bool          `json:"archived"`
	Version      int64         `json:"version"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Engine returns the model as the evaluator sees it.
func (m GradingModel) Engine() grading.Model {
	g := m.Graph
	return grading.Model{
		ID:           m.ID,
		CoursePartID: m.CoursePartID,
		Graph:        &g,
		Archived:     m.Archived,
		Version:      m.Version,
	}
}
