package http

import (
	nethttp "net/http"

	"github.com/samber/lo"

	"github.com/mind-engage/mindengage-grades/internal/course"
)

// Course structure is owned by the course administration system; these routes
// mirror it into the grade store.

func PutCourseHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		var c course.Course
		if !decodeBody(w, r, &c) {
			return
		}
		if c.ID != courseID {
			nethttp.Error(w, "course id mismatch", nethttp.StatusBadRequest)
			return
		}
		if err := store.PutCourse(r.Context(), c); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, c)
	}
}

func PutCoursePartHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		partID, ok := intParam(w, r, "partID")
		if !ok {
			return
		}
		var p course.CoursePart
		if !decodeJSON(w, r, &p) {
			return
		}
		p.ID, p.CourseID = partID, courseID
		if !validBody(w, &p) {
			return
		}
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			writeError(w, r, err)
			return
		}
		if err := store.PutCoursePart(r.Context(), p); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, p)
	}
}

func PutCourseTaskHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		taskID, ok := intParam(w, r, "taskID")
		if !ok {
			return
		}
		var t course.CourseTask
		if !decodeJSON(w, r, &t) {
			return
		}
		t.ID = taskID
		if !validBody(w, &t) {
			return
		}
		parts, err := store.ListCourseParts(r.Context(), courseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !lo.ContainsBy(parts, func(p course.CoursePart) bool { return p.ID == t.CoursePartID }) {
			nethttp.Error(w, "unknown course part", nethttp.StatusBadRequest)
			return
		}
		if err := store.PutCourseTask(r.Context(), t); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, t)
	}
}

func DeleteCourseTaskHandler(store course.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID, ok := intParam(w, r, "courseID")
		if !ok {
			return
		}
		taskID, ok := intParam(w, r, "taskID")
		if !ok {
			return
		}
		tasks, err := store.ListCourseTasks(r.Context(), courseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !lo.ContainsBy(tasks, func(t course.CourseTask) bool { return t.ID == taskID }) {
			nethttp.Error(w, "course task not found", nethttp.StatusNotFound)
			return
		}
		if err := store.DeleteCourseTask(r.Context(), taskID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}
