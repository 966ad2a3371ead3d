package http

import (
	"log/slog"
	"time"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/mind-engage/mindengage-grades/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/logger"
	"github.com/mind-engage/mindengage-grades/internal/results"
)

type RouterOptions struct {
	Service  *results.Service
	Store    course.Store
	Registry *prometheus.Registry
	// Auth guards every route but health, metrics and graph validation.
	// Nil leaves them open.
	Auth          *auth.AuthService
	CORSOrigins   []string
	Logger        *slog.Logger
	JSONLogs      bool
	DefaultPolicy grading.SelectPolicy
}

func NewRouter(o RouterOptions) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(httplog.RequestLogger(httplog.NewLogger("http", httplog.Options{
		LogLevel:         slog.LevelInfo,
		JSON:             o.JSONLogs,
		Concise:          true,
		MessageFieldName: "msg",
		QuietDownRoutes:  []string{"/healthz", "/metrics"},
		QuietDownPeriod:  time.Minute,
	})))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if o.Logger != nil {
		r.Use(func(next nethttp.Handler) nethttp.Handler {
			return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, req *nethttp.Request) {
				ctx := logger.WithLogger(req.Context(), o.Logger.With("request_id", middleware.GetReqID(req.Context())))
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	if len(o.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   o.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if o.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{Registry: o.Registry}))
	}
	r.Post("/graphs/validate", ValidateGraphHandler())

	r.Group(func(pr chi.Router) {
		if o.Auth != nil {
			pr.Use(auth.JWTMiddleware(o.Auth))
		}
		pr.Route("/courses/{courseID}", func(cr chi.Router) {
			cr.Put("/", PutCourseHandler(o.Store))
			cr.Put("/parts/{partID}", PutCoursePartHandler(o.Store))
			cr.Put("/tasks/{taskID}", PutCourseTaskHandler(o.Store))
			cr.Delete("/tasks/{taskID}", DeleteCourseTaskHandler(o.Store))
			cr.Post("/tasks/{taskID}/grades", AddGradesHandler(o.Service))

			cr.Get("/models", ListModelsHandler(o.Store))
			cr.Post("/models", SaveModelHandler(o.Service))
			cr.Post("/preview", PreviewModelsHandler(o.Service))
			cr.Get("/models/{modelID}", GetModelHandler(o.Store))
			cr.Put("/models/{modelID}", SaveModelHandler(o.Service))
			cr.Get("/models/{modelID}/results", ResultsHandler(o.Service, o.DefaultPolicy))
			cr.Post("/models/{modelID}/preview", PreviewHandler(o.Service))
		})
	})
	return r
}
