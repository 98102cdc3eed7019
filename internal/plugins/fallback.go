package plugins

import (
	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/webassets/internal/settings"
)

const (
	FallbackName = "fallback"

	emptyNamespace = "fallback-empty"
)

// Fallback substitutes modules which fail to resolve, typically node core
// modules imported by packages written for node. A fallback without a
// module resolves to an empty module.
func Fallback(fallbacks map[string]settings.Fallback) api.Plugin {
	return api.Plugin{
		Name: FallbackName,
		Setup: func(build api.PluginBuild) {
			if len(fallbacks) == 0 {
				return
			}

			names := make(map[string]string, len(fallbacks))
			for name := range fallbacks {
				names[name] = name
			}

			build.OnResolve(api.OnResolveOptions{Filter: AliasFilter(names)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.PluginData == (resolving{FallbackName}) {
						return api.OnResolveResult{}, nil
					}

					opts := api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: resolving{FallbackName},
					}

					// prefer the real module when it is installed
					if result := build.Resolve(args.Path, opts); len(result.Errors) == 0 {
						return resolved(result), nil
					}

					fb, ok := fallbacks[args.Path]
					if !ok {
						return api.OnResolveResult{}, nil
					}

					if fb.Empty() {
						return api.OnResolveResult{Path: args.Path, Namespace: emptyNamespace}, nil
					}

					result := build.Resolve(fb.Module, opts)
					if len(result.Errors) > 0 {
						return api.OnResolveResult{Errors: result.Errors}, nil
					}
					return resolved(result), nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: emptyNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := "module.exports = {};"
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func resolved(result api.ResolveResult) api.OnResolveResult {
	return api.OnResolveResult{
		Path:      result.Path,
		External:  result.External,
		Namespace: result.Namespace,
		Suffix:    result.Suffix,
	}
}
