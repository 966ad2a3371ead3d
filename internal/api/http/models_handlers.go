package http

import (
	"errors"

	nethttp "net/http"

	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/results"
)

type structuralError struct {
	Kind    string   `json:"kind"`
	NodeIDs []string `json:"nodeIds,omitempty"`
	Message string   `json:"message"`
}

type validationResponse struct {
	OK       bool              `json:"ok"`
	Errors   []structuralError `json:"errors"`
	Warnings []grading.Warning `json:"warnings"`
}

func toValidationResponse(res grading.ValidationResult) validationResponse {
	out := validationResponse{
		OK:       res.OK(),
		Errors:   make([]structuralError, 0, len(res.Errors)),
		Warnings: res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []grading.Warning{}
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, structuralError{Kind: e.Kind.Error(), NodeIDs: e.NodeIDs, Message: e.Error()})
	}
	return out
}

// ValidateGraphHandler checks a graph document without storing it.
func ValidateGraphHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var g grading.Graph
		if !decodeBody(w, r, &g) {
			return
		}
		writeJSON(w, nethttp.StatusOK, toValidationResponse(grading.Validate(&g)))
	}
}

func ListModelsHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			writeError(w, r, err)
			return
		}
		models, err := store.ListModels(r.Context(), courseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if models == nil {
			models = []course.GradingModel{}
		}
		writeJSON(w, nethttp.StatusOK, models)
	}
}

func GetModelHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		modelID, ok := intParam(w, r, "modelID")
		if !ok {
			return
		}
		m, err := store.GetModel(r.Context(), courseID, modelID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, m)
	}
}

type modelRequest struct {
	Name         string        `json:"name" validate:"required"`
	CoursePartID *int          `json:"coursePartId" validate:"omitempty,gt=0"`
	Graph        grading.Graph `json:"graphStructure"`
	Archived     bool          `json:"archived"`
	// Version, when set, must match the stored version.
	Version int64 `json:"version" validate:"gte=0"`
}

// SaveModelHandler creates a model on POST and replaces one on PUT. Rejected
// graphs answer 422 with the validation report.
func SaveModelHandler(svc *results.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		var modelID int
		if r.Method == nethttp.MethodPut {
			if modelID, ok = intParam(w, r, "modelID"); !ok {
				return
			}
		}
		var req modelRequest
		if !decodeBody(w, r, &req) {
			return
		}

		saved, res, err := svc.SaveModel(r.Context(), course.GradingModel{
			ID:           modelID,
			CourseID:     courseID,
			CoursePartID: req.CoursePartID,
			Name:         req.Name,
			Graph:        req.Graph,
			Archived:     req.Archived,
			Version:      req.Version,
		})
		if errors.Is(err, results.ErrInvalidModel) {
			writeJSON(w, nethttp.StatusUnprocessableEntity, toValidationResponse(res))
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := nethttp.StatusOK
		if modelID == 0 {
			status = nethttp.StatusCreated
		}
		writeJSON(w, status, map[string]any{
			"model":      saved,
			"validation": toValidationResponse(res),
		})
	}
}
