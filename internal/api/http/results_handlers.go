package http

import (
	"time"

	nethttp "net/http"

	"github.com/samber/lo"

	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/results"
)

type gradeInput struct {
	StudentID  int        `json:"studentId" validate:"required,gt=0"`
	Grade      float64    `json:"grade"`
	Date       time.Time  `json:"date" validate:"required"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
}

type addGradesRequest struct {
	Grades []gradeInput `json:"grades" validate:"required,min=1,dive"`
}

func AddGradesHandler(svc *results.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		taskID, ok := intParam(w, r, "taskID")
		if !ok {
			return
		}
		var req addGradesRequest
		if !decodeBody(w, r, &req) {
			return
		}
		grades := lo.Map(req.Grades, func(g gradeInput, _ int) course.TaskGrade {
			return course.TaskGrade{StudentID: g.StudentID, Grade: g.Grade, Date: g.Date, ExpiryDate: g.ExpiryDate}
		})
		added, err := svc.AddGrades(r.Context(), courseID, taskID, grades)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusCreated, added)
	}
}

// parseAt accepts RFC 3339 timestamps and plain dates. Empty means now.
func parseAt(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

// ResultsHandler computes the course results of a model. The selection
// policy comes from the tie and expiry query parameters, falling back to
// the given defaults.
func ResultsHandler(svc *results.Service, defaults grading.SelectPolicy) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		modelID, ok := intParam(w, r, "modelID")
		if !ok {
			return
		}
		q := r.URL.Query()
		policy, err := grading.ParseSelectPolicy(
			lo.CoalesceOrEmpty(q.Get("tie"), string(defaults.Tie)),
			lo.CoalesceOrEmpty(q.Get("expiry"), string(defaults.Expiry)),
		)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		at, err := parseAt(q.Get("at"))
		if err != nil {
			nethttp.Error(w, "bad at", nethttp.StatusBadRequest)
			return
		}

		out, err := svc.CourseResults(r.Context(), courseID, modelID, policy, at)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if out.Excluded == nil {
			out.Excluded = []grading.ExcludedModel{}
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"policy":   policy,
			"students": out.Subjects,
			"excluded": out.Excluded,
		})
	}
}

// previewSubject carries ad-hoc source values; a null value marks the source
// as having no grade.
type previewSubject struct {
	ID     int                 `json:"id" validate:"required,gt=0"`
	Values map[string]*float64 `json:"values"`
}

type previewRequest struct {
	ModelIDs []int            `json:"modelIds,omitempty" validate:"omitempty,dive,gt=0"`
	Subjects []previewSubject `json:"subjects" validate:"required,min=1,dive"`
}

func (p previewRequest) subjects() []grading.Subject {
	return lo.Map(p.Subjects, func(s previewSubject, _ int) grading.Subject {
		values := make(map[string]grading.SourceValue, len(s.Values))
		for node, v := range s.Values {
			if v == nil {
				values[node] = grading.Absent()
				continue
			}
			values[node] = grading.Present(*v)
		}
		return grading.Subject{ID: grading.SubjectID(s.ID), SourceValues: values}
	})
}

// PreviewHandler evaluates one stored model against the posted values.
func PreviewHandler(svc *results.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		modelID, ok := intParam(w, r, "modelID")
		if !ok {
			return
		}
		var req previewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.Preview(r.Context(), courseID, modelID, req.subjects())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, out)
	}
}

// PreviewModelsHandler evaluates several models of a course, keyed by model id.
func PreviewModelsHandler(svc *results.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		var req previewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.ModelIDs) == 0 {
			nethttp.Error(w, "modelIds required", nethttp.StatusBadRequest)
			return
		}
		out, err := svc.PreviewModels(r.Context(), courseID, req.ModelIDs, req.subjects())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, out)
	}
}
