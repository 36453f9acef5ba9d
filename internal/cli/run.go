package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
)

// ErrTreeFailed is returned when a run completes with Fail, so the process
// exits nonzero.
var ErrTreeFailed = errors.New("tree failed")

// RunOptions configures a single run.
type RunOptions struct {
	Tree    string
	Vars    map[string]any
	Verbose bool
	// JSON prints the RunResult instead of the colored summary.
	JSON   bool
	Banner bool
}

// Run executes one tree and prints its output lines and result to w.
func Run(ctx context.Context, s *Stack, opts RunOptions, w io.Writer, color tui.ColorMode) error {
	printer := tui.NewPrinter(w, color)
	if opts.Banner && !opts.JSON {
		tui.PrintBanner(w, arbor.Version, color)
	}

	req := arbor.RunRequest{Tree: opts.Tree, Vars: opts.Vars}
	if !opts.JSON {
		req.Progress = printer.Line
	}
	res, err := s.Runner.Run(ctx, req)
	if err != nil {
		if isInterrupted(err) && !opts.JSON {
			printer.System("Interrupted '%s'.", opts.Tree)
		}
		return handleExecutionError(err)
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printer.Result(res, opts.Verbose)
	}
	if res.Outcome != arbor.Pass {
		return fmt.Errorf("%s: %w", opts.Tree, ErrTreeFailed)
	}
	return nil
}

// Validate builds every named tree (or all trees when names is empty) and
// reports each failure.
func Validate(s *Stack, names []string, w io.Writer) error {
	if len(names) == 0 {
		all, err := s.Source.ListTrees()
		if err != nil {
			return err
		}
		names = all
	}
	if len(names) == 0 {
		return fmt.Errorf("no trees found in %s", s.Source.Dir())
	}

	var errs []error
	for _, name := range names {
		if err := s.Runner.Validate(name); err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", name)
	}
	return errors.Join(errs...)
}
