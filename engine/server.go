package engine

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the engine's HTTP control surface: submit a run, inspect it,
// cancel it. The prediction API talks to it through Client; anything else
// that can speak the job configuration format may submit too.
type Server struct {
	registry *Registry
	runner   *Runner
}

func NewServer(registry *Registry, runner *Runner) *Server {
	return &Server{registry: registry, runner: runner}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", s.submitRun)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/status", s.getRunStatus)
	mux.HandleFunc("POST /api/v1/runs/{id}/cancel", s.cancelRun)
	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) submitRun(w http.ResponseWriter, req *http.Request) {
	var cfg RunConfig
	if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job configuration"})
		return
	}
	if len(cfg.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job configuration has no data"})
		return
	}

	run := s.registry.Create(cfg)
	if !s.runner.Enqueue(run.ID) {
		// The id was never given out, so the run can simply vanish.
		s.registry.Remove(run.ID)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "work queue is full"})
		return
	}

	log.Printf("run %s queued", run.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(run.Status),
	})
}

func (s *Server) getRun(w http.ResponseWriter, req *http.Request) {
	run, ok := s.registry.Get(req.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRunStatus(w http.ResponseWriter, req *http.Request) {
	run, ok := s.registry.Get(req.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"run_id": run.ID,
		"status": string(run.Status),
	})
}

func (s *Server) cancelRun(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	status, err := s.registry.Cancel(id)
	switch {
	case errors.Is(err, ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
	case err != nil:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("run %s cancel requested: %s", id, status)
		writeJSON(w, http.StatusOK, map[string]string{
			"run_id": id,
			"status": string(status),
		})
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   s.registry.Len(),
		"queued": s.runner.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}
