// Package http exposes tree runs over a small JSON API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the control API on top of a Runner.
type Server struct {
	Runner   *arbor.Runner
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// New creates a Server for runner.
func New(runner *arbor.Runner, opts ...Option) *Server {
	s := &Server{
		Runner:  runner,
		Streams: NewStreamManager(),
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.Logger
	return s
}

// NewHandler creates the HTTP handler for runner.
func NewHandler(runner *arbor.Runner, opts ...Option) http.Handler {
	return New(runner, opts...).Handler()
}

// Handler builds the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Route("/trees", func(r chi.Router) {
		r.Get("/", s.ListTrees)
		r.Get("/{name}", s.GetTree)
		r.Get("/{name}/graph", s.GetGraph)
		r.Get("/{name}/events", s.SubscribeEvents)
		r.Post("/{name}/run", s.RunTree)
	})
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Get("/{id}", s.GetRun)
		r.Delete("/{id}", s.DeleteRun)
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	kinds := s.Runner.Registry().Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	writeJSON(w, s.Logger, http.StatusOK, map[string]any{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
		"kinds":   names,
	})
}

// ListTrees handles the GET /trees request.
func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request) {
	names, err := s.Runner.Source().ListTrees()
	if err != nil {
		s.fail(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, s.Logger, http.StatusOK, names)
}

// GetTree handles the GET /trees/{name} request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, s.Logger, http.StatusOK, def)
}

// GetGraph handles the GET /trees/{name}/graph request. With ?run=<id> the
// outcomes of that run are overlaid.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var overlay *graph.Overlay
	if runID := r.URL.Query().Get("run"); runID != "" {
		recs, err := s.Runner.Sessions().Load(r.Context(), runID)
		if err != nil {
			s.fail(w, err)
			return
		}
		overlay = graph.OverlayFromRecords(recs)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(def, overlay))
}

// RunRequest is the body of POST /trees/{name}/run.
type RunRequest struct {
	Vars map[string]any `json:"vars,omitempty"`
}

// RunTree handles the POST /trees/{name}/run request. The run is bound to
// the request context.
func (s *Server) RunTree(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.Logger.Warn("RunTree: Invalid request body", "error", err)
			return
		}
	}

	res, err := s.Runner.Run(r.Context(), arbor.RunRequest{
		Tree: name,
		Vars: body.Vars,
		Progress: func(node string, line arbor.OutputLine) {
			s.Streams.Broadcast(name, StreamEvent{Type: "output", Node: node, Line: line.Line, Stderr: line.IsErr})
		},
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.Streams.Broadcast(name, StreamEvent{Type: "result", RunID: res.RunID, Outcome: res.Outcome.String()})
	writeJSON(w, s.Logger, http.StatusOK, res)
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Runner.Sessions().List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, s.Logger, http.StatusOK, ids)
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Runner.Sessions().Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, s.Logger, http.StatusOK, recs)
}

// DeleteRun handles the DELETE /runs/{id} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Runner.Sessions().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) definition(name string) (*loader.Definition, error) {
	data, err := s.Runner.Source().GetTree(name)
	if err != nil {
		return nil, err
	}
	return loader.Parse(data)
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTreeNotFound), errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStructural), errors.Is(err, domain.ErrUnknownBehavior),
		errors.Is(err, domain.ErrBehaviorConflict):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "error", err)
	}
	writeJSON(w, s.Logger, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

// StreamEvent is one server-sent event of a tree stream.
type StreamEvent struct {
	Type    string `json:"type"`
	Node    string `json:"node,omitempty"`
	Line    string `json:"line,omitempty"`
	Stderr  bool   `json:"stderr,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// StreamManager handles active SSE connections, keyed by tree name.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- StreamEvent]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- StreamEvent]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(tree string) (chan StreamEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamEvent, 64)
	if _, ok := sm.subscribers[tree]; !ok {
		sm.subscribers[tree] = make(map[chan<- StreamEvent]struct{})
	}
	sm.subscribers[tree][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[tree]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, tree)
			}
		}
	}
}

// Subscribers returns the trees with at least one listener, sorted.
func (sm *StreamManager) Subscribers() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]string, 0, len(sm.subscribers))
	for k := range sm.subscribers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (sm *StreamManager) Broadcast(tree string, ev StreamEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[tree] {
		select {
		case ch <- ev:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "tree", tree)
		}
	}
}

// SubscribeEvents handles the GET /trees/{name}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	name := chi.URLParam(r, "name")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(name)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
