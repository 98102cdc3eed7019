package plugins

import (
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/webassets/internal/manifest"
	"github.com/wolfeidau/webassets/internal/metafile"
)

const ManifestName = "manifest"

// Manifest writes the manifest read by the server side templates after every
// build. A failed build writes an error status so stale tags are not served.
func Manifest(path string, layout manifest.Layout) api.Plugin {
	return api.Plugin{
		Name: ManifestName,
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, manifest.Write(path, manifest.Failed(result.Errors[0].Text))
				}

				meta, err := metafile.Parse(result.Metafile)
				if err != nil {
					return api.OnEndResult{}, err
				}

				m, err := manifest.FromMetafile(meta, layout)
				if err != nil {
					return api.OnEndResult{}, err
				}

				if err := manifest.Write(path, m); err != nil {
					return api.OnEndResult{}, err
				}

				log.Info().Str("path", path).Strs("entries", m.Entries()).Msg("Wrote manifest")
				return api.OnEndResult{}, nil
			})
		},
	}
}
