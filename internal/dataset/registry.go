package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"permitscope/internal/validation"
)

var matchesFilePattern = regexp.MustCompile(`^([A-Z]{2})_matches\.json$`)

// Registry tracks which states currently have a matches file available.
// The list is rebuilt on demand and kept current by a filesystem watcher
// so newly dropped files appear without a restart.
type Registry struct {
	dataDir  string
	manifest map[string]string
	logger   *slog.Logger

	mu     sync.RWMutex
	states []string
}

// NewRegistry creates a registry over dataDir and performs an initial scan.
func NewRegistry(dataDir string, manifest map[string]string, logger *slog.Logger) *Registry {
	r := &Registry{
		dataDir:  dataDir,
		manifest: manifest,
		logger:   logger,
	}
	r.Rescan()
	return r
}

// States returns the sorted state codes with an available dataset.
func (r *Registry) States() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.states))
	copy(out, r.states)
	return out
}

// Has reports whether a dataset is available for the given state.
func (r *Registry) Has(state string) bool {
	state = validation.NormalizeStateCode(state)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.states {
		if s == state {
			return true
		}
	}
	return false
}

// Rescan rebuilds the state list from the data directory and manifest.
func (r *Registry) Rescan() {
	found := make(map[string]struct{})

	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("scanning data dir failed", "dir", r.dataDir, "error", err)
		}
	} else {
		for _, e := range entries {
			if e.IsDir() {
				// Nested layout: <STATE>/<STATE>_matches.json
				state := validation.NormalizeStateCode(e.Name())
				if !validation.ValidateStateCode(state) {
					continue
				}
				nested := filepath.Join(r.dataDir, e.Name(), state+"_matches.json")
				if _, err := os.Stat(nested); err == nil {
					found[state] = struct{}{}
				}
				continue
			}
			if m := matchesFilePattern.FindStringSubmatch(e.Name()); m != nil {
				found[m[1]] = struct{}{}
			}
		}
	}

	for state, path := range r.manifest {
		if _, err := os.Stat(path); err == nil {
			found[validation.NormalizeStateCode(state)] = struct{}{}
		}
	}

	states := make([]string, 0, len(found))
	for s := range found {
		states = append(states, s)
	}
	sort.Strings(states)

	r.mu.Lock()
	r.states = states
	r.mu.Unlock()
}

// Watch rescans whenever the data directory changes. It blocks until the
// context is cancelled; callers run it in a goroutine.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dataDir); err != nil {
		return err
	}
	r.watchStateDirs(watcher)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") && !isDir(ev.Name) {
				continue
			}
			r.logger.Debug("data dir changed, rescanning", "event", ev.Op.String(), "path", ev.Name)
			r.Rescan()
			r.watchStateDirs(watcher)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("data dir watcher error", "error", err)
		}
	}
}

// watchStateDirs adds the nested <STATE>/ subdirectories to the watcher
// so files dropped into the nested layout also trigger a rescan. Adding
// an already-watched directory is a no-op.
func (r *Registry) watchStateDirs(watcher *fsnotify.Watcher) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !validation.ValidateStateCode(validation.NormalizeStateCode(e.Name())) {
			continue
		}
		if err := watcher.Add(filepath.Join(r.dataDir, e.Name())); err != nil {
			r.logger.Warn("watching state dir failed", "dir", e.Name(), "error", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
