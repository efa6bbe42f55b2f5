package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/logging"
)

// ExecuteRequest is the dispatch request body.
type ExecuteRequest struct {
	Service string         `json:"service"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// ExecuteResponse wraps a successful dispatch result.
type ExecuteResponse struct {
	Data any `json:"data"`
}

// ErrorResponse carries the stable error code alongside the message.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SyncResponse reports a forced queue drain.
type SyncResponse struct {
	Replayed int `json:"replayed"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", executor.CodeValidation)
		return
	}
	if req.Service == "" || req.Method == "" {
		writeError(w, http.StatusBadRequest, "service and method are required", executor.CodeValidation)
		return
	}

	data, err := s.orch.Execute(r.Context(), req.Service, req.Method, req.Params)
	if err != nil {
		code := executor.CodeOf(err)
		writeError(w, statusFor(code), err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{Data: data})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	replayed := s.orch.SyncOfflineData(r.Context())
	s.logger.Info("manual sync", logging.Count(replayed))
	writeJSON(w, http.StatusOK, SyncResponse{Replayed: replayed})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connection": s.monitor.GetState(),
		"version":    s.version,
		"uptime":     time.Since(s.startTime).String(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.GetOperationHistory())
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"services": s.orch.Services(),
		"metrics":  s.orch.GetServiceMetrics(),
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.orch.RestartService(r.Context(), name); err != nil {
		code := executor.CodeOf(err)
		writeError(w, statusFor(code), err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"restarted": name})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(code executor.Code) int {
	switch code {
	case executor.CodeValidation:
		return http.StatusBadRequest
	case executor.CodeAuthorization:
		return http.StatusUnauthorized
	case executor.CodeNotFound, executor.CodeUnknownOperation:
		return http.StatusNotFound
	case executor.CodeQueueOverflow:
		return http.StatusTooManyRequests
	case executor.CodeTimeout:
		return http.StatusGatewayTimeout
	case executor.CodeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, code executor.Code) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: string(code)})
}
