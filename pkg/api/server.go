// Package api exposes the orchestrator over HTTP: a single execute
// endpoint for dispatch plus read-only telemetry, health, and recovery
// surfaces.
package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/health"
	"github.com/dd0wney/portfolio-core/pkg/logging"
	"github.com/dd0wney/portfolio-core/pkg/metrics"
	"github.com/dd0wney/portfolio-core/pkg/orchestrator"
)

// Server holds the handler dependencies.
type Server struct {
	orch      *orchestrator.Orchestrator
	monitor   *connmon.Monitor
	checker   *health.Checker
	registry  *metrics.Registry
	logger    logging.Logger
	startTime time.Time
	version   string
}

// NewServer creates the API server. Registry may be nil; /metrics then
// returns 404.
func NewServer(orch *orchestrator.Orchestrator, monitor *connmon.Monitor, checker *health.Checker, registry *metrics.Registry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		orch:      orch,
		monitor:   monitor,
		checker:   checker,
		registry:  registry,
		logger:    logger.With(logging.Component("api")),
		startTime: time.Now(),
		version:   "1.0.0",
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Dispatch
	mux.HandleFunc("POST /v1/execute", s.handleExecute)
	mux.HandleFunc("POST /v1/sync", s.handleSync)

	// Telemetry
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("GET /v1/services", s.handleServices)
	mux.HandleFunc("POST /v1/services/{name}/restart", s.handleRestart)

	// Operational surfaces
	mux.HandleFunc("GET /health", s.checker.HTTPHandler())
	mux.HandleFunc("GET /ready", s.checker.ReadinessHandler())
	if s.registry != nil {
		mux.Handle("GET /metrics", s.registry.Handler())
	}

	return s.withRequestLog(mux)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("duration", time.Since(start)))
	})
}
