// Package api implements the catalog HTTP server.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/pkg/api/handlers"
	apimw "github.com/marmos91/stickerd/pkg/api/middleware"
	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/metrics"
)

// NewRouter creates and configures the chi router with all middleware and
// routes. worker may be nil when the queue pipeline is disabled.
func NewRouter(config Config, c *catalog.Catalog, worker handlers.WorkerControl, hm *metrics.HTTPMetrics) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(httpMetrics(hm))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", config.Port)
	}

	imageHandler := handlers.NewImageHandler(c, baseURL, config.MaxUploadSize.Int64())
	categoryHandler := handlers.NewCategoryHandler(c)
	taskHandler := handlers.NewTaskHandler(c, worker)
	healthHandler := handlers.NewHealthHandler(c)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Read endpoints
	r.Get("/list", imageHandler.List)
	r.Get("/search", imageHandler.Search)
	r.Get("/random", imageHandler.Random)
	r.Get("/get/{id}", imageHandler.Get)
	r.Get("/info/{id}", imageHandler.Info)
	r.Get("/categories", categoryHandler.List)
	r.Get("/categories/{category}", imageHandler.RandomByCategory)
	r.Get("/tags", categoryHandler.Tags)
	r.Get("/tags/{tag}", imageHandler.RandomByTag)

	// Upload - token guarded
	r.With(apimw.UploadToken(config.UploadToken)).Post("/upload", imageHandler.Upload)

	// Mutation endpoints
	r.Delete("/images/{id}", imageHandler.Delete)
	r.Put("/images/{id}/name", imageHandler.UpdateName)
	r.Put("/images/{id}/category", imageHandler.UpdateCategory)
	r.Put("/images/{id}/tags", imageHandler.UpdateTags)
	r.Post("/categories", categoryHandler.Create)
	r.Delete("/categories/{id}", categoryHandler.Delete)

	// Pipeline admin
	r.Get("/tasks/stats", taskHandler.Stats)
	r.Get("/tasks/failed", taskHandler.Failed)
	r.Post("/tasks/retry", taskHandler.Retry)
	r.Post("/tasks/reanalyze", taskHandler.Reanalyze)
	r.Post("/worker/pause", taskHandler.Pause)
	r.Post("/worker/config", taskHandler.Configure)
	r.Post("/analyze/{id}", taskHandler.Analyze)
	r.Post("/import", taskHandler.Import)

	return r
}

// requestLogger logs request start and completion using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			logger.KeyMethod, r.Method,
			logger.KeyRequestURI, r.URL.RequestURI(),
			logger.KeyRemoteAddr, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			logger.KeyMethod, r.Method,
			logger.KeyRequestURI, r.URL.RequestURI(),
			logger.KeyStatusCode, ww.Status(),
			logger.KeyDurationMS, time.Since(start).Milliseconds(),
		)
	})
}

// httpMetrics records request counts and durations per route pattern.
// A nil metrics handle makes this a pass-through.
func httpMetrics(hm *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hm == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			hm.RequestStarted()
			defer hm.RequestFinished()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			hm.RecordRequest(r.Method, route, fmt.Sprintf("%d", ww.Status()), time.Since(start))
		})
	}
}
