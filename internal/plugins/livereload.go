package plugins

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/webassets/internal/livereload"
)

const LiveReloadName = "livereload"

type LiveReloadOptions struct {
	Addr string
	// Watch starts the server, one off builds leave the plugin inert
	Watch bool
}

// LiveReload runs a LiveReload server while watching and notifies browsers
// after every successful rebuild. Stylesheet only changes are sent as CSS
// reloads so the page keeps its state.
func LiveReload(opts LiveReloadOptions) api.Plugin {
	return api.Plugin{
		Name: LiveReloadName,
		Setup: func(build api.PluginBuild) {
			if !opts.Watch {
				return
			}

			var (
				once    sync.Once
				server  = livereload.New(opts.Addr)
				started bool
				hashes  = map[string]string{}
			)

			build.OnStart(func() (api.OnStartResult, error) {
				var err error
				once.Do(func() {
					err = server.Start(context.Background())
					started = err == nil
				})
				return api.OnStartResult{}, err
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 || !started {
					return api.OnEndResult{}, nil
				}
				for _, path := range ChangedOutputs(hashes, result.OutputFiles) {
					server.Reload(path)
				}
				return api.OnEndResult{}, nil
			})

			build.OnDispose(func() {
				if !started {
					return
				}
				if err := server.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to stop LiveReload server")
				}
			})
		},
	}
}

// ChangedOutputs updates hashes with the latest outputs and returns the paths
// to send to clients. When only stylesheets changed each of them is
// returned, otherwise a single script path triggers a full page reload.
func ChangedOutputs(hashes map[string]string, outputs []api.OutputFile) []string {
	if len(outputs) == 0 {
		return []string{""}
	}

	var changed []string
	for _, f := range outputs {
		if filepath.Ext(f.Path) == ".map" {
			continue
		}
		if prev, ok := hashes[f.Path]; ok && prev == f.Hash {
			continue
		}
		hashes[f.Path] = f.Hash
		changed = append(changed, f.Path)
	}
	sort.Strings(changed)

	for _, p := range changed {
		if filepath.Ext(p) != ".css" {
			return []string{p}
		}
	}
	return changed
}
