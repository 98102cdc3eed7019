package plugins

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const AliasName = "alias"

type resolving struct{ plugin string }

// Alias rewrites imports of name, or name/sub/path, to the absolute directory
// configured for name. The rewritten path is resolved by esbuild so extension
// and index lookups still apply.
func Alias(aliases map[string]string) api.Plugin {
	return api.Plugin{
		Name: AliasName,
		Setup: func(build api.PluginBuild) {
			if len(aliases) == 0 {
				return
			}

			build.OnResolve(api.OnResolveOptions{Filter: AliasFilter(aliases)},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.PluginData == (resolving{AliasName}) {
						return api.OnResolveResult{}, nil
					}

					target, ok := MatchAlias(aliases, args.Path)
					if !ok {
						return api.OnResolveResult{}, nil
					}

					result := build.Resolve(target, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: resolving{AliasName},
					})
					if len(result.Errors) > 0 {
						return api.OnResolveResult{Errors: result.Errors}, nil
					}

					return resolved(result), nil
				})
		},
	}
}

// AliasFilter builds the esbuild filter matching any of the alias names,
// longest first so nested aliases win.
func AliasFilter(aliases map[string]string) string {
	names := sortedAliasNames(aliases)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return `^(` + strings.Join(quoted, "|") + `)(/.*)?$`
}

// MatchAlias returns the absolute target for path when it starts with an alias.
func MatchAlias(aliases map[string]string, path string) (string, bool) {
	for _, name := range sortedAliasNames(aliases) {
		if path == name {
			return aliases[name], true
		}
		if rest, ok := strings.CutPrefix(path, name+"/"); ok {
			return filepath.Join(aliases[name], filepath.FromSlash(rest)), true
		}
	}
	return "", false
}

func sortedAliasNames(aliases map[string]string) []string {
	names := make([]string, 0, len(aliases))
	for n := range aliases {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) == len(names[j]) {
			return names[i] < names[j]
		}
		return len(names[i]) > len(names[j])
	})
	return names
}
