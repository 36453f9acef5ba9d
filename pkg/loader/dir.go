package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Extensions recognised by DirSource, in lookup order.
var Extensions = []string{".tree.yaml", ".tree.yml"}

// DirSource implements ports.TreeSource and ports.Watchable over a directory
// of "<name>.tree.yaml" files.
type DirSource struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
}

// NewDirSource creates a source reading definitions from dir.
func NewDirSource(dir string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DirSource{dir: dir, debounce: 100 * time.Millisecond, logger: logger}
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string { return s.dir }

// GetTree reads the definition file of name.
func (s *DirSource) GetTree(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrTreeNotFound)
	}
	for _, ext := range Extensions {
		data, err := os.ReadFile(filepath.Join(s.dir, name+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", name, domain.ErrTreeNotFound)
}

// ListTrees returns the names of all definition files, sorted.
func (s *DirSource) ListTrees() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := treeName(entry.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func treeName(file string) (string, bool) {
	for _, ext := range Extensions {
		if name, ok := strings.CutSuffix(file, ext); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// Watch signals on the returned channel after definition files change.
// Bursts of file events are coalesced. The channel closes with ctx.
func (s *DirSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if _, isTree := treeName(filepath.Base(ev.Name)); !isTree {
					continue
				}
				s.logger.Debug("definition changed", "file", ev.Name, "op", ev.Op.String())
				if timer == nil {
					timer = time.NewTimer(s.debounce)
				} else {
					timer.Reset(s.debounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "dir", s.dir, "error", err)
			case <-fire:
				fire = nil
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
