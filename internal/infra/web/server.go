package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"stock-metadata-generator/internal/infra/logging"
	"stock-metadata-generator/internal/infra/metrics"
	"stock-metadata-generator/internal/usecase"
)

const (
	apiBasePath      = "/api/v1"
	defaultMaxUpload = 512 << 20
	requestTimeout   = 2 * time.Minute
)

type Deps struct {
	Items   *usecase.ItemStore
	Intake  usecase.IntakeUseCase
	Batch   usecase.BatchUseCase
	Edits   usecase.BulkEditUseCase
	Export  usecase.ExportUseCase
	Creds   *usecase.CredentialRegistry
	Auth    *AuthManager // nil disables auth (dev only)
	MaxBody int64        // multipart upload limit in bytes
	Dev     bool
}

type Server struct {
	Deps
	log *zerolog.Logger
}

func NewServer(deps Deps, logger *zerolog.Logger) *Server {
	if deps.MaxBody <= 0 {
		deps.MaxBody = defaultMaxUpload
	}
	return &Server{Deps: deps, log: logger}
}

// Routes builds the chi router for the whole service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route(apiBasePath, func(r chi.Router) {
		r.With(middleware.Timeout(requestTimeout)).Post("/auth/token", s.handleToken)

		r.Group(func(r chi.Router) {
			if s.Auth != nil {
				r.Use(s.Auth.Require)
			}
			// long-lived stream, no request timeout
			r.Get("/events", s.handleEvents)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				r.Route("/items", func(r chi.Router) {
					r.Get("/", s.handleListItems)
					r.Post("/", s.handleUpload)
					r.Delete("/", s.handleClearItems)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetItem)
						r.Get("/thumbnail", s.handleThumbnail)
						r.Put("/metadata/{platform}", s.handleEditMetadata)
						r.Put("/active-platform", s.handleActivePlatform)
						r.Post("/regenerate", s.handleRegenerate)
					})
				})
				r.Route("/batches", func(r chi.Router) {
					r.Post("/", s.handleStartBatch)
					r.Get("/current", s.handleCurrentBatch)
				})
				r.Route("/keys/{provider}", func(r chi.Router) {
					r.Get("/", s.handleListKeys)
					r.Post("/", s.handleAddKey)
					r.Delete("/", s.handleRemoveKey)
				})
				r.Post("/bulk-edit", s.handleBulkEdit)
				r.Post("/undo", s.handleUndo)
				r.Get("/exports", s.handleReadyExports)
				r.Get("/exports/{platform}", s.handleExport)
			})
		})
	})
	return r
}

// requestLogger attaches the request id as trace_id, logs each request and
// records HTTP metrics under the matched route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		metrics.ObserveHTTP(route, r.Method, status, d)

		ev := logging.With(ctx, s.log).Debug()
		if status >= 500 {
			ev = logging.With(ctx, s.log).Error()
		}
		ev.Str("method", r.Method).Str("route", route).Int("status", status).
			Int("bytes", ww.BytesWritten()).Dur("duration", d).Msg("http request")
	})
}
