// Package httpapi exposes the connector over HTTP: authorization init and
// callback, company sync and a health probe.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/rs/cors"

	"github.com/goliatone/go-crm-connector/command"
)

const (
	PathAuthInit     = "/auth/init"
	PathAuthCallback = "/auth/callback"
	PathSyncCompany  = "/sync/companies"
	PathHealth       = "/healthz"
)

type Server struct {
	router         *chi.Mux
	logger         glog.Logger
	allowedOrigins []string

	begin    *command.BeginAuthorizationCommand
	complete *command.CompleteAuthorizationCommand
	sync     *command.SyncCompaniesCommand
}

type Option func(*Server)

func WithLogger(logger glog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigins restricts CORS origins. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		cleaned := make([]string, 0, len(origins))
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			s.allowedOrigins = cleaned
		}
	}
}

// NewRouter wires the connector endpoints for service.
func NewRouter(service command.ConnectorService, opts ...Option) *Server {
	r := chi.NewRouter()
	s := &Server{
		router:         r,
		logger:         glog.Nop(),
		allowedOrigins: []string{"*"},
		begin:          command.NewBeginAuthorizationCommand(service),
		complete:       command.NewCompleteAuthorizationCommand(service),
		sync:           command.NewSyncCompaniesCommand(service),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	r.Use(middleware.RequestID)
	r.Use(s.accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsHandler().Handler)
	r.Use(answerOptions)

	r.Get(PathHealth, s.handleHealth)
	r.Get(PathAuthInit, s.handleAuthInit)
	r.Get(PathAuthCallback, s.handleAuthCallback)
	r.Post(PathSyncCompany, s.handleSyncCompanies)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:     s.allowedOrigins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:     []string{"X-Request-Id"},
		OptionsPassthrough: false,
	})
}

// answerOptions short-circuits OPTIONS requests that are not CORS preflights.
func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("access",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
