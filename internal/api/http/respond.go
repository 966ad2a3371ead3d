package http

import (
	"encoding/json"
	"errors"
	"strconv"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/logger"
	"github.com/mind-engage/mindengage-grades/internal/results"
)

var validate = validator.New()

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads and validates a JSON request body into dst.
func decodeBody(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	return decodeJSON(w, r, dst) && validBody(w, dst)
}

func decodeJSON(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	r.Body = nethttp.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
		return false
	}
	return true
}

func validBody(w nethttp.ResponseWriter, v any) bool {
	if err := validate.Struct(v); err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return false
	}
	return true
}

// intParam parses a positive integer path parameter.
func intParam(w nethttp.ResponseWriter, r *nethttp.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		nethttp.Error(w, "bad "+name, nethttp.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// writeError maps service errors to status codes.
func writeError(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	switch {
	case errors.Is(err, course.ErrNotFound):
		nethttp.Error(w, err.Error(), nethttp.StatusNotFound)
	case errors.Is(err, course.ErrStaleModel):
		nethttp.Error(w, err.Error(), nethttp.StatusConflict)
	case errors.Is(err, results.ErrInvalidModel):
		nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
	case errors.Is(err, grading.ErrInvalidPolicy), errors.Is(err, results.ErrBadReference):
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
	default:
		logger.Error(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		nethttp.Error(w, "internal error", nethttp.StatusInternalServerError)
	}
}
