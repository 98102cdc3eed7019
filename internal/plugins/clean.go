package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const CleanName = "clean"

// ErrUnsafeClean is returned when the output directory contains the sources.
var ErrUnsafeClean = errors.New("refusing to clean output directory")

type CleanOptions struct {
	// OutputDir is the absolute directory esbuild writes to
	OutputDir string
	// WorkingDir is the absolute directory holding the sources
	WorkingDir string
	// Stale removes outputs which are no longer produced after each rebuild
	Stale bool
}

// Clean empties the output directory once before the first build. With Stale
// set, outputs a rebuild no longer produces are removed as well.
func Clean(opts CleanOptions) api.Plugin {
	return api.Plugin{
		Name: CleanName,
		Setup: func(build api.PluginBuild) {
			c := &cleaner{opts: opts}
			build.OnStart(func() (api.OnStartResult, error) {
				return api.OnStartResult{}, c.wipeOnce()
			})

			if !opts.Stale {
				return
			}

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				paths, err := OutputPaths(result, opts.WorkingDir)
				if err != nil {
					return api.OnEndResult{}, err
				}
				return api.OnEndResult{}, c.removeStale(paths)
			})
		},
	}
}

type cleaner struct {
	opts     CleanOptions
	once     sync.Once
	mu       sync.Mutex
	previous map[string]bool
}

func (c *cleaner) wipeOnce() error {
	var err error
	c.once.Do(func() {
		err = Wipe(c.opts.OutputDir, c.opts.WorkingDir)
	})
	return err
}

// Wipe removes everything inside dir. It refuses to touch a directory which
// is the filesystem root or contains workingDir.
func Wipe(dir, workingDir string) error {
	dir = filepath.Clean(dir)
	if dir == filepath.Dir(dir) || within(workingDir, dir) {
		return fmt.Errorf("%w: %s", ErrUnsafeClean, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}

	log.Debug().Str("dir", dir).Int("removed", len(entries)).Msg("Cleaned output directory")
	return nil
}

func (c *cleaner) removeStale(outputs []string) error {
	current := make(map[string]bool, len(outputs))
	for _, p := range outputs {
		current[p] = true
	}

	c.mu.Lock()
	previous := c.previous
	c.previous = current
	c.mu.Unlock()

	for path := range previous {
		if current[path] || !within(path, c.opts.OutputDir) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		_ = os.Remove(path + ".gz")
		log.Debug().Str("file", path).Msg("Removed stale asset")
	}
	return nil
}

// within reports whether path is dir or inside it.
func within(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
