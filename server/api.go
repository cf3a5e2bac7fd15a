package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lexcodex/reagent/agents"
	"github.com/lexcodex/reagent/framework"
)

// DefaultTaskTimeout bounds a single task request.
const DefaultTaskTimeout = 30 * time.Minute

// SessionFactory builds an isolated session for one request. Sessions keep
// their own window and plan but share the workspace lock and todo store.
type SessionFactory func(planFirst bool) (*agents.Session, error)

// APIServer exposes HTTP endpoints for running tasks without a terminal.
type APIServer struct {
	NewSession  SessionFactory
	Logger      *slog.Logger
	TaskTimeout time.Duration
}

// TaskRequest describes incoming API payload.
type TaskRequest struct {
	Instruction string `json:"instruction"`
	Plan        bool   `json:"plan"`
}

// TaskResponse describes API response.
type TaskResponse struct {
	Answer     string `json:"answer,omitempty"`
	Reflection string `json:"reflection,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ToolInfo is the public description of a registered tool.
type ToolInfo struct {
	Name        string                 `json:"name"`
	ClassName   string                 `json:"class_name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *APIServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the route mux.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task", s.handleTask)
	mux.HandleFunc("/api/tools", s.handleTools)
	return mux
}

func (s *APIServer) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Instruction == "" {
		http.Error(w, "instruction required", http.StatusBadRequest)
		return
	}
	session, err := s.NewSession(req.Plan)
	if err != nil {
		s.logger().Error("session setup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, TaskResponse{Error: err.Error()})
		return
	}
	timeout := s.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	result, err := session.Agent.Run(ctx, req.Instruction)
	if err != nil {
		s.logger().Warn("task failed", "error", err)
		status := http.StatusOK
		if !errors.Is(err, framework.ErrProtocolViolation) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, TaskResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TaskResponse{Answer: result.FinalAnswer, Reflection: result.Reflection})
}

func (s *APIServer) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, err := s.NewSession(false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, describeTools(session.Tools))
}

func (s *APIServer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default().With("component", "api")
	}
	return s.Logger
}

func describeTools(registry *framework.ToolRegistry) []ToolInfo {
	all := registry.All()
	out := make([]ToolInfo, 0, len(all))
	for _, tool := range all {
		out = append(out, ToolInfo{
			Name:        tool.Name(),
			ClassName:   framework.ClassName(tool.Name()),
			Description: tool.Description(),
			Parameters:  framework.ToolSchema(tool),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
