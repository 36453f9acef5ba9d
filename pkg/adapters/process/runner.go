package process

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"golang.org/x/sync/errgroup"
)

// KindCommand is the definition kind served by Runner.Factory.
const KindCommand domain.BehaviorKind = "command"

// ErrNotRegistered is returned for commands missing from the allow-list.
var ErrNotRegistered = errors.New("command not registered")

// Runner turns allow-listed commands into external tasks.
// Each stdout/stderr line becomes a domain.OutputLine progress event;
// exit code 0 passes, anything else fails.
type Runner struct {
	mu          sync.RWMutex
	commands    map[string]CommandConfig
	allowInline bool
	baseDir     string
	waitDelay   time.Duration
	logger      *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithCommands populates the allow-list from a loaded config.
func WithCommands(commands map[string]CommandConfig) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			c.Name = name
			r.commands[name] = c
		}
	}
}

// WithInlineExecution enables ad-hoc commands given by "exec" in a
// definition (Dangerous).
func WithInlineExecution(allow bool) RunnerOption {
	return func(r *Runner) {
		r.allowInline = allow
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		commands:  make(map[string]CommandConfig),
		waitDelay: 2 * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = CommandConfig{Name: name, Command: command, Args: args}
}

// Commands returns the allow-listed command names, sorted.
func (r *Runner) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Params are the "with" parameters of a command node.
type Params struct {
	Command string         `mapstructure:"command"`
	Args    map[string]any `mapstructure:"args"`
	// Exec and ExecArgs describe an inline command; only honoured with
	// WithInlineExecution.
	Exec     string   `mapstructure:"exec"`
	ExecArgs []string `mapstructure:"exec_args"`
}

// Factory builds ExternalTask behaviors for the "command" kind.
func (r *Runner) Factory() registry.Factory {
	return func(params map[string]any) (arbor.Behavior, error) {
		var p Params
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		fn, err := r.Task(p)
		if err != nil {
			return nil, err
		}
		return arbor.ExternalTask(fn), nil
	}
}

// Install registers the "command" kind in reg.
func (r *Runner) Install(reg *registry.Registry) {
	reg.Register(KindCommand, r.Factory())
}

// Task resolves p against the allow-list and returns the task running it.
func (r *Runner) Task(p Params) (arbor.TaskFunc, error) {
	cfg, err := r.resolve(p)
	if err != nil {
		return nil, err
	}
	env := argEnv(p.Args)
	for k, v := range cfg.Environment {
		env = append(env, k+"="+v)
	}
	return func(ctx context.Context, emit arbor.Emitter) (domain.Outcome, error) {
		return r.run(ctx, cfg, env, emit)
	}, nil
}

func (r *Runner) resolve(p Params) (CommandConfig, error) {
	if p.Command != "" {
		r.mu.RLock()
		cfg, ok := r.commands[p.Command]
		r.mu.RUnlock()
		if !ok {
			return CommandConfig{}, fmt.Errorf("%q: %w", p.Command, ErrNotRegistered)
		}
		return cfg, nil
	}
	if p.Exec != "" {
		if !r.allowInline {
			return CommandConfig{}, fmt.Errorf("inline %q: %w (inline execution disabled)", p.Exec, ErrNotRegistered)
		}
		return CommandConfig{Name: p.Exec, Command: p.Exec, Args: p.ExecArgs}, nil
	}
	return CommandConfig{}, fmt.Errorf("missing command")
}

func (r *Runner) run(ctx context.Context, cfg CommandConfig, env []string, emit arbor.Emitter) (domain.Outcome, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = r.baseDir
	if cfg.Dir != "" {
		cmd.Dir = cfg.Dir
	}
	cmd.Env = append(cmd.Environ(), env...)
	cmd.WaitDelay = r.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.Fail, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return domain.Fail, err
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.Fail, fmt.Errorf("start %s: %w", cfg.Name, err)
	}
	r.logger.Debug("command started", "command", cfg.Name, "pid", cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error { return pump(stdout, false, emit) })
	g.Go(func() error { return pump(stderr, true, emit) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	r.logger.Debug("command finished", "command", cfg.Name, "duration", time.Since(start), "error", waitErr)
	if ctx.Err() != nil {
		return domain.Fail, ctx.Err()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// A non-zero exit is a domain failure, not an error.
			return domain.Fail, nil
		}
		return domain.Fail, waitErr
	}
	if pumpErr != nil {
		return domain.Fail, pumpErr
	}
	return domain.Pass, nil
}

// maxLine bounds a single output line.
const maxLine = 1024 * 1024

// pump emits rd line by line. After an over-long line the rest of the
// stream is discarded, but still read so the process never blocks on a
// full pipe.
func pump(rd io.Reader, isErr bool, emit arbor.Emitter) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		emit(domain.OutputLine{Line: sc.Text(), IsErr: isErr})
	}
	err := sc.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		emit(domain.OutputLine{Line: fmt.Sprintf("output truncated: line exceeds %d bytes", maxLine), IsErr: true})
		_, err = io.Copy(io.Discard, rd)
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// argEnv passes node arguments as ARBOR_ARG_<KEY> variables rather than
// command-line flags, so values cannot inject options.
func argEnv(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(args))
	for _, k := range keys {
		var val string
		switch v := args[k].(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if b, err := json.Marshal(v); err == nil {
				val = string(b)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, fmt.Sprintf("ARBOR_ARG_%s=%s", strings.ToUpper(k), val))
	}
	return env
}
