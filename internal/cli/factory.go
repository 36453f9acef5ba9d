package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/process"
	redisadapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Stack is everything a command needs to load and run trees.
type Stack struct {
	Source   *loader.DirSource
	Registry *registry.Registry
	Commands *process.Runner
	Sessions *session.Manager
	Runner   *arbor.Runner
	// Prometheus is nil unless Options.Metrics is set.
	Prometheus *prometheus.Registry
	Logger     *slog.Logger

	closers []func() error
}

// NewStack wires the tree source, behavior kinds, journal and runner
// according to opts.
func NewStack(opts Options) (*Stack, error) {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level)
	if opts.Dir == "" {
		opts.Dir = "."
	}

	s := &Stack{
		Source:   loader.NewDirSource(opts.Dir, logger),
		Registry: registry.Default(),
		Logger:   logger,
	}

	commands, err := process.LoadCommands(opts.commandsPath())
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	s.Commands = process.NewRunner(
		process.WithCommands(commands),
		process.WithInlineExecution(opts.UnsafeInline),
		process.WithBaseDir(opts.Dir),
		process.WithLogger(logger),
	)
	s.Commands.Install(s.Registry)

	var journal ports.Journal = memory.NewJournal()
	var sessionOpts []session.Option
	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(ropts)
		s.closers = append(s.closers, client.Close)
		journal = redisadapter.NewFromClient(client)
		sessionOpts = append(sessionOpts, session.WithLocker(redisadapter.NewLocker(client, "arbor:")))
		logger.Debug("Using redis journal", "addr", ropts.Addr)
	}
	sessionOpts = append(sessionOpts, session.WithLogger(logger))
	s.Sessions = session.NewManager(journal, sessionOpts...)

	runnerOpts := []arbor.RunnerOption{
		arbor.WithRunnerRegistry(s.Registry),
		arbor.WithRunnerLogger(logger),
	}
	if level <= slog.LevelDebug {
		runnerOpts = append(runnerOpts, arbor.WithRunnerHooks(observability.LogHooks(logger)))
	}
	if opts.Metrics {
		s.Prometheus = prometheus.NewRegistry()
		s.Prometheus.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		runnerOpts = append(runnerOpts, arbor.WithRunnerHooks(observability.NewMetrics(s.Prometheus).Hooks()))
	}
	s.Runner = arbor.NewRunner(s.Source, s.Sessions, runnerOpts...)
	return s, nil
}

// Close releases connections opened by NewStack.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
