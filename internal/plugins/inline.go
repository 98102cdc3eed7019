package plugins

import (
	"encoding/base64"
	"os"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	InlineName = "inline-assets"

	// DefaultInlineLimit is the largest file inlined as a data URL.
	DefaultInlineLimit = 10 * 1024
)

// InlineRule inlines files matching Filter up to MaxSize bytes, larger files
// are emitted with the file loader. MimeType overrides the type esbuild
// derives from the extension.
type InlineRule struct {
	Filter   string
	MaxSize  int64
	MimeType string
}

// DefaultInlineRules returns the image and cursor rules.
func DefaultInlineRules() []InlineRule {
	return []InlineRule{
		{Filter: `\.(avif|webp|png|jpe?g|gif|svg)$`, MaxSize: DefaultInlineLimit},
		{Filter: `\.cur$`, MaxSize: DefaultInlineLimit, MimeType: "image/x-icon"},
	}
}

// Inline applies the size limited data URL rules.
func Inline(rules []InlineRule) api.Plugin {
	return api.Plugin{
		Name: InlineName,
		Setup: func(build api.PluginBuild) {
			for _, rule := range rules {
				if rule.MimeType != "" {
					// css url() tokens resolve to the data url itself so the mimetype is kept
					build.OnResolve(api.OnResolveOptions{Filter: rule.Filter},
						func(args api.OnResolveArgs) (api.OnResolveResult, error) {
							if args.Kind != api.ResolveCSSURLToken || args.PluginData == (resolving{InlineName}) {
								return api.OnResolveResult{}, nil
							}
							result := build.Resolve(args.Path, api.ResolveOptions{
								Importer:   args.Importer,
								ResolveDir: args.ResolveDir,
								Kind:       args.Kind,
								PluginData: resolving{InlineName},
							})
							if len(result.Errors) > 0 || result.Namespace != "file" {
								return api.OnResolveResult{}, nil
							}
							data, ok, err := readInline(result.Path, rule.MaxSize)
							if err != nil || !ok {
								return api.OnResolveResult{}, err
							}
							return api.OnResolveResult{
								Path:     DataURL(rule.MimeType, data),
								External: true,
							}, nil
						})
				}

				build.OnLoad(api.OnLoadOptions{Filter: rule.Filter, Namespace: "file"},
					func(args api.OnLoadArgs) (api.OnLoadResult, error) {
						data, ok, err := readInline(args.Path, rule.MaxSize)
						if err != nil {
							return api.OnLoadResult{}, err
						}
						if !ok {
							// fall through to the file loader
							return api.OnLoadResult{}, nil
						}
						contents := string(data)
						return api.OnLoadResult{Contents: &contents, Loader: api.LoaderDataURL}, nil
					})
			}
		},
	}
}

// readInline returns the file contents when it is small enough to inline.
func readInline(path string, maxSize int64) ([]byte, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if fi.Size() > maxSize {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
