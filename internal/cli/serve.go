package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/arbor/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	Addr string
	// Watch revalidates the definitions whenever they change on disk.
	Watch bool
}

// Serve runs the HTTP API until ctx is done.
func Serve(ctx context.Context, s *Stack, opts ServeOptions) error {
	handlerOpts := []httpadapter.Option{httpadapter.WithLogger(s.Logger)}
	if s.Prometheus != nil {
		handlerOpts = append(handlerOpts, httpadapter.WithGatherer(s.Prometheus))
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           httpadapter.NewHandler(s.Runner, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Info("Starting arbor server", "addr", srv.Addr, "dir", s.Source.Dir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		s.Logger.Info("Server stopped gracefully")
		return nil
	})
	if opts.Watch {
		g.Go(func() error {
			return watchDefinitions(ctx, s)
		})
	}
	return g.Wait()
}

// watchDefinitions logs the validity of every tree after each change. Runs
// always load the current file, so nothing needs swapping.
func watchDefinitions(ctx context.Context, s *Stack) error {
	changes, err := s.Source.Watch(ctx)
	if err != nil {
		return err
	}
	for range changes {
		names, err := s.Source.ListTrees()
		if err != nil {
			s.Logger.Warn("List trees failed", "err", err)
			continue
		}
		for _, name := range names {
			if err := s.Runner.Validate(name); err != nil {
				s.Logger.Warn("Tree invalid after change", "tree", name, "err", err)
				continue
			}
			s.Logger.Info("Tree reloaded", "tree", name)
		}
	}
	return nil
}
