// Package agent exposes an execution engine over HTTP so that steps can be
// launched on another machine.
package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"labelledshell/internal/durable"
)

type job struct {
	status JobStatus
}

// Server runs jobs it receives on a local engine and keeps their state in
// memory for the lifetime of the process.
type Server struct {
	// BaseEnv is the agent environment that job overrides are applied to;
	// nil means the current process env.
	BaseEnv durable.EnvVars

	id     string
	engine durable.Engine
	logger *log.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

func NewServer(id string, engine durable.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		id:     id,
		engine: engine,
		logger: logger.WithPrefix("agent"),
		jobs:   make(map[string]*job),
	}
}

// Routes returns the agent API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/executions", func(r chi.Router) {
		r.Get("/", s.handleListJobs)
		r.Post("/", s.handleRunJob)
		r.Get("/{id}", s.handleGetJob)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "agentId": s.id})
}

// POST /v1/executions
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = durable.TaskKindShell
	}
	if req.Kind != durable.TaskKindShell {
		http.Error(w, "unsupported task kind "+req.Kind, http.StatusBadRequest)
		return
	}

	// The job must outlive the request that created it.
	exec, err := durable.Dispatch(context.WithoutCancel(r.Context()), s.engine, &durable.Request{
		Task:    durable.NewBourneShellScript(req.Script),
		Env:     s.jobEnv(req.Env),
		WorkDir: req.WorkDir,
		Label:   req.Label,
	})
	if err != nil {
		s.logger.Error("launch failed", "err", err)
		http.Error(w, "launch failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	j := &job{status: JobStatus{ID: exec.ID(), AgentID: s.id, Label: req.Label, Status: StatusRunning}}
	s.mu.Lock()
	s.jobs[exec.ID()] = j
	s.mu.Unlock()
	s.logger.Info("job started", "id", exec.ID(), "label", req.Label)

	accepted := j.status
	go s.track(j, exec)

	writeJSON(w, http.StatusAccepted, accepted)
}

// jobEnv merges the overrides sent by the runner onto the agent environment.
func (s *Server) jobEnv(overrides map[string]string) durable.EnvVars {
	env := s.BaseEnv
	if env == nil {
		env = durable.EnvVarsFromSlice(os.Environ())
	}
	env = env.Clone()
	env.OverrideAll(overrides)
	return env
}

func (s *Server) track(j *job, exec durable.Execution) {
	res, err := exec.Wait(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	j.status.Result = res
	if err != nil {
		j.status.Status = StatusFailed
		j.status.Error = err.Error()
		s.logger.Warn("job failed", "id", j.status.ID, "err", err)
		return
	}
	j.status.Status = StatusFinished
	s.logger.Info("job finished", "id", j.status.ID, "exit", res.ExitCode)
}

// GET /v1/executions/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	j, ok := s.jobs[id]
	var status JobStatus
	if ok {
		status = j.status
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GET /v1/executions
func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.status
		st.Result = nil
		out = append(out, st)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
