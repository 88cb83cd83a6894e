package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/phototasks/internal/auth"
	"github.com/vbonduro/phototasks/internal/photostore"
	"github.com/vbonduro/phototasks/internal/service"
)

type Server struct {
	tasks      *service.TaskService
	sessions   *auth.Sessions
	photoStore photostore.PhotoStore
	mux        *http.ServeMux
	logger     *slog.Logger
}

func NewServer(tasks *service.TaskService, sessions *auth.Sessions, ps photostore.PhotoStore, logger *slog.Logger) *Server {
	s := &Server{
		tasks:      tasks,
		sessions:   sessions,
		photoStore: ps,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /tasks", s.withSession(s.handleListTasks))
	s.mux.HandleFunc("POST /tasks", s.withSession(s.handleCreateTask))
	s.mux.HandleFunc("GET /tasks/{id}", s.withSession(s.handleGetTask))
	s.mux.HandleFunc("PUT /tasks/{id}", s.withSession(s.handleUpdateTask))
	s.mux.HandleFunc("DELETE /tasks/{id}", s.withSession(s.handleDeleteTask))
	s.mux.HandleFunc("POST /tasks/{id}/toggle", s.withSession(s.handleToggleTask))
	s.mux.HandleFunc("GET /tasks/{id}/photo", s.withSession(s.handleGetPhoto))
}

// sessionHandler is a handler that runs for a signed-in user.
type sessionHandler func(w http.ResponseWriter, r *http.Request, email string)

// withSession resolves the bearer token and holds requests back with 503
// until the task list has been loaded successfully.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := s.sessions.Lookup(bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if s.tasks.Loading() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "tasks are still loading")
			return
		}
		if s.tasks.LoadErr() != nil {
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "tasks are unavailable")
			return
		}
		next(w, r, email)
	}
}

func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a task service error to a status code. The body is
// always "failed to <action>"; server-side causes are logged.
func (s *Server) writeServiceError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrEmptyOwner),
		errors.Is(err, service.ErrMissingPhoto):
		status = http.StatusBadRequest
	default:
		s.logger.Error("task operation failed", "action", action, "error", err)
	}
	writeError(w, status, "failed to "+action)
}
