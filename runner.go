package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/session"
)

// RunResult summarises one journaled run of a named tree.
type RunResult struct {
	RunID    string        `json:"run_id"`
	Tree     string        `json:"tree"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Nodes    []NodeState   `json:"nodes"`
}

// ProgressFunc receives output lines of external tasks as they arrive.
type ProgressFunc func(node string, line OutputLine)

// RunRequest describes a run.
type RunRequest struct {
	Tree string
	// Vars override the definition's variables.
	Vars     map[string]any
	Progress ProgressFunc
	// RunID is generated when empty.
	RunID string
}

// Runner executes named trees end to end. Each run gets a fresh engine, a
// run ID, and a journal of every resolved node. Runs of the same tree are
// serialized through the session manager.
type Runner struct {
	source   ports.TreeSource
	sessions *session.Manager
	registry *registry.Registry
	hooks    []domain.LifecycleHooks
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerRegistry sets the behavior kinds used to build trees.
func WithRunnerRegistry(reg *registry.Registry) RunnerOption {
	return func(r *Runner) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithRunnerHooks adds hooks to every run (e.g. metrics).
func WithRunnerHooks(hooks domain.LifecycleHooks) RunnerOption {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks)
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner reading trees from source and journaling
// through sessions.
func NewRunner(source ports.TreeSource, sessions *session.Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:   source,
		sessions: sessions,
		registry: registry.Default(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source returns the tree source.
func (r *Runner) Source() ports.TreeSource { return r.source }

// Sessions returns the session manager.
func (r *Runner) Sessions() *session.Manager { return r.sessions }

// Registry returns the behavior kinds.
func (r *Runner) Registry() *registry.Registry { return r.registry }

// Run builds req.Tree, drives it to an outcome and returns the summary.
// Cancelling ctx interrupts the tree; the partial journal is kept.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = NewRunID()
	}
	logger := r.logger.With("tree", req.Tree, "run_id", runID)

	var result *RunResult
	err := r.sessions.WithLock(ctx, req.Tree, func(ctx context.Context) error {
		rec := observability.NewRecorder(runID, r.sessions.Journal(), logger)
		hooks := append([]domain.LifecycleHooks{}, r.hooks...)
		hooks = append(hooks, rec.Hooks())
		if req.Progress != nil {
			hooks = append(hooks, domain.LifecycleHooks{
				OnProgress: func(_ context.Context, ev *domain.NodeEvent) {
					if line, ok := ev.Payload.(domain.OutputLine); ok {
						req.Progress(ev.NodeName, line)
					}
				},
			})
		}

		opts := []Option{
			WithSource(r.source),
			WithRegistry(r.registry),
			WithLogger(logger),
			WithContext(ctx),
		}
		for _, h := range hooks {
			opts = append(opts, WithLifecycleHooks(h))
		}
		eng := New(opts...)

		tree, err := eng.LoadTree(req.Tree)
		if err != nil {
			return err
		}
		for k, v := range req.Vars {
			tree.Vars.Set(k, v)
		}

		start := time.Now()
		logger.Info("run started")
		outcome, err := eng.Run(ctx, tree.Root)
		if err != nil {
			logger.Warn("run aborted", "error", err)
			return fmt.Errorf("run %s: %w", req.Tree, err)
		}
		nodes, err := eng.Inspect(tree.Root)
		if err != nil {
			return err
		}
		result = &RunResult{
			RunID:    runID,
			Tree:     req.Tree,
			Outcome:  outcome,
			Duration: time.Since(start),
			Nodes:    nodes,
		}
		logger.Info("run finished", "outcome", outcome.String(), "duration", result.Duration, "records", rec.Written())
		return eng.Destroy(tree.Root)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Validate builds req.Tree in a scratch engine and reports any error.
func (r *Runner) Validate(name string) error {
	eng := New(WithSource(r.source), WithRegistry(r.registry), WithLogger(r.logger))
	_, err := eng.LoadTree(name)
	return err
}
