package plugins

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const CopyName = "copy"

// CopyPattern copies From to To, both absolute. A directory is copied
// recursively.
type CopyPattern struct {
	From string
	To   string
}

// Copy copies the patterns after every successful build. When watch is set
// the sources are also watched and copied again when they change.
func Copy(patterns []CopyPattern, watch bool) api.Plugin {
	return api.Plugin{
		Name: CopyName,
		Setup: func(build api.PluginBuild) {
			var (
				once   sync.Once
				cancel context.CancelFunc = func() {}
			)

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				if err := CopyAll(context.Background(), patterns); err != nil {
					return api.OnEndResult{}, err
				}
				if watch {
					once.Do(func() {
						var ctx context.Context
						ctx, cancel = context.WithCancel(context.Background())
						if err := watchCopies(ctx, patterns); err != nil {
							log.Warn().Err(err).Msg("Failed to watch copy sources")
						}
					})
				}
				return api.OnEndResult{}, nil
			})

			build.OnDispose(func() {
				cancel()
			})
		},
	}
}

// CopyAll copies every pattern concurrently.
func CopyAll(ctx context.Context, patterns []CopyPattern) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range patterns {
		g.Go(func() error {
			return copyPattern(ctx, p)
		})
	}
	return g.Wait()
}

func copyPattern(ctx context.Context, p CopyPattern) error {
	info, err := os.Stat(p.From)
	if err != nil {
		return fmt.Errorf("copy %s: %w", p.From, err)
	}

	if !info.IsDir() {
		return copyFile(p.From, p.To, info.Mode())
	}

	return filepath.WalkDir(p.From, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(p.From, path)
		if err != nil {
			return err
		}
		target := filepath.Join(p.To, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// watchCopies copies a pattern again when anything under its source changes.
func watchCopies(ctx context.Context, patterns []CopyPattern) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	owners := map[string]CopyPattern{}
	for _, p := range patterns {
		err := filepath.WalkDir(p.From, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path == p.From {
				owners[path] = p
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", p.From, err)
		}
	}

	go func() {
		defer watcher.Close()

		var (
			debounce *time.Timer
			pending  = map[string]CopyPattern{}
			fire     = make(chan struct{}, 1)
		)

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				p, ok := owners[event.Name]
				if !ok {
					p, ok = owners[filepath.Dir(event.Name)]
				}
				if !ok {
					continue
				}
				pending[p.From] = p
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(200*time.Millisecond, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				batch := make([]CopyPattern, 0, len(pending))
				for _, p := range pending {
					batch = append(batch, p)
				}
				clear(pending)
				if err := CopyAll(ctx, batch); err != nil {
					log.Error().Err(err).Msg("Failed to copy changed files")
					continue
				}
				log.Info().Int("patterns", len(batch)).Msg("Copied changed files")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Copy watcher error")
			}
		}
	}()

	return nil
}
