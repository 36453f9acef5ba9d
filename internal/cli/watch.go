package cli

import (
	"context"
	"errors"
	"io"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
)

// RunWatch runs a tree and reruns it every time the definitions change. A
// change while a run is in flight interrupts it first.
func RunWatch(ctx context.Context, s *Stack, opts RunOptions, w io.Writer, color tui.ColorMode) error {
	printer := tui.NewPrinter(w, color)
	tui.PrintBanner(w, arbor.Version, color)

	changes, err := s.Source.Watch(ctx)
	if err != nil {
		return err
	}
	printer.System("Watching '%s'.", s.Source.Dir())

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- Run(runCtx, s, RunOptions{Tree: opts.Tree, Vars: opts.Vars, Verbose: opts.Verbose}, w, color)
		}()

		reload := false
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case _, ok := <-changes:
			cancel()
			<-done
			if !ok {
				return nil
			}
			reload = true
		case err := <-done:
			cancel()
			if err != nil && !errors.Is(err, ErrTreeFailed) {
				s.Logger.Error("Run failed", "tree", opts.Tree, "err", err)
			}
		}

		if !reload {
			printer.System("Waiting for changes...")
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-changes:
				if !ok {
					return nil
				}
			}
		}
		s.Logger.Info("Change detected, reloading", "tree", opts.Tree)
		printer.System("Change detected, rerunning '%s'.", opts.Tree)
	}
}
