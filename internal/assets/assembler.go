package assets

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/webassets/internal/manifest"
	"github.com/wolfeidau/webassets/internal/plugins"
	"github.com/wolfeidau/webassets/internal/settings"
)

const (
	EntryNames = "[ext]/[name].[hash]"
	ChunkNames = "js/[name].[hash]"
	AssetNames = "assets/[name].[hash]"

	// MetafileName is written next to the manifest for tooling.
	MetafileName = "meta.json"
)

// Config is the assembled build, ready to hand to esbuild.
type Config struct {
	Options api.BuildOptions

	// Aliases maps alias names to absolute paths
	Aliases map[string]string
	// CopyPatterns are absolute, empty when nothing is copied
	CopyPatterns []plugins.CopyPattern
	// Entries maps entry names to absolute input paths
	Entries map[string]string

	Minify       bool
	CleanStale   bool
	ManifestPath string
	MetafilePath string
	Env          Env
}

// Assemble derives the esbuild configuration from the project settings and
// build environment. It performs no I/O, invalid settings surface as esbuild
// errors when the build runs.
func Assemble(s *settings.Settings, env Env) *Config {
	production := env.Production()
	contextDir := s.Build.Context
	outputDir := s.Build.AssetsPath

	cfg := &Config{
		Aliases:      ResolveAliases(contextDir, s.Aliases),
		CopyPatterns: ResolveCopyPatterns(s.Dir, s.Copy),
		Entries:      make(map[string]string, len(s.Entry)),
		Minify:       production,
		CleanStale:   production,
		ManifestPath: filepath.Join(outputDir, manifest.Filename),
		MetafilePath: filepath.Join(outputDir, MetafileName),
		Env:          env,
	}

	names := make([]string, 0, len(s.Entry))
	for name, path := range s.Entry {
		cfg.Entries[name] = settings.Resolve(contextDir, path)
		names = append(names, name)
	}
	sort.Strings(names)

	entryPoints := make([]api.EntryPoint, len(names))
	for i, name := range names {
		entryPoints[i] = api.EntryPoint{InputPath: cfg.Entries[name], OutputPath: name}
	}

	cfg.Options = api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       contextDir,
		Outdir:              outputDir,
		EntryNames:          EntryNames,
		ChunkNames:          ChunkNames,
		AssetNames:          AssetNames,
		PublicPath:          s.Build.AssetsURL,
		Bundle:              true,
		Splitting:           true,
		Write:               true,
		Metafile:            true,
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		Target:              api.ES2017,
		Charset:             api.CharsetASCII,
		TreeShaking:         api.TreeShakingTrue,
		ResolveExtensions:   []string{".js", ".jsx"},
		PreserveSymlinks:    true,
		Loader:              loaders(),
		Sourcemap:           cond(production, api.SourceMapLinked, api.SourceMapInline),
		MinifyWhitespace:    production,
		MinifyIdentifiers:   production,
		MinifySyntax:        production,
		LegalComments:       cond(production, api.LegalCommentsNone, api.LegalCommentsDefault),
		LogLevel:            api.LogLevelSilent,
	}

	if env.Mode != "" {
		cfg.Options.Define = map[string]string{
			"process.env.NODE_ENV": strconv.Quote(string(env.Mode)),
		}
	}

	if len(s.Provide) > 0 {
		cfg.Options.Inject = []string{plugins.ProvideModule}
		if cfg.Options.Define == nil {
			cfg.Options.Define = map[string]string{}
		}
		for ident, local := range plugins.ProvideDefines(s.Provide) {
			cfg.Options.Define[ident] = local
		}
	}

	cfg.Options.Plugins = []api.Plugin{
		plugins.Alias(cfg.Aliases),
		plugins.Fallback(s.Fallback),
		plugins.Provide(s.Provide, contextDir),
		plugins.Sass(plugins.SassOptions{
			Binary:       s.Sass.Binary,
			IncludePaths: resolveAll(s.Dir, s.Sass.IncludePaths),
			Minify:       production,
		}),
		plugins.Inline(plugins.DefaultInlineRules()),
		plugins.Clean(plugins.CleanOptions{
			OutputDir:  outputDir,
			WorkingDir: contextDir,
			Stale:      cfg.CleanStale,
		}),
		plugins.Manifest(cfg.ManifestPath, manifest.Layout{
			WorkingDir: contextDir,
			OutputDir:  outputDir,
			PublicPath: s.Build.AssetsURL,
			Entries:    cfg.Entries,
		}),
	}

	// the copy plugin rejects an empty pattern list
	if len(cfg.CopyPatterns) > 0 {
		cfg.Options.Plugins = append(cfg.Options.Plugins, plugins.Copy(cfg.CopyPatterns, env.Watch))
	}

	if env.ReportRequested() {
		cfg.Options.Plugins = append(cfg.Options.Plugins, plugins.Analyzer(outputDir, os.Stderr))
	}

	if env.Development() {
		cfg.Options.Plugins = append(cfg.Options.Plugins, plugins.LiveReload(plugins.LiveReloadOptions{
			Addr:  s.LiveReload.Listen,
			Watch: env.Watch,
		}))
	}

	if production && s.Precompress {
		cfg.Options.Plugins = append(cfg.Options.Plugins, plugins.Precompress(contextDir))
	}

	return cfg
}

// ResolveAliases resolves each alias path against the context directory.
func ResolveAliases(contextDir string, aliases map[string]string) map[string]string {
	resolved := make(map[string]string, len(aliases))
	for name, path := range aliases {
		resolved[name] = settings.Resolve(contextDir, path)
	}
	return resolved
}

// ResolveCopyPatterns resolves both sides of each copy instruction against
// baseDir, keeping their order.
func ResolveCopyPatterns(baseDir string, copies []settings.Copy) []plugins.CopyPattern {
	patterns := make([]plugins.CopyPattern, 0, len(copies))
	for _, c := range copies {
		patterns = append(patterns, plugins.CopyPattern{
			From: settings.Resolve(baseDir, c.From),
			To:   settings.Resolve(baseDir, c.To),
		})
	}
	return patterns
}

// PluginCount returns how many registered plugins carry name.
func (c *Config) PluginCount(name string) int {
	n := 0
	for _, p := range c.Options.Plugins {
		if p.Name == name {
			n++
		}
	}
	return n
}

func loaders() map[string]api.Loader {
	l := map[string]api.Loader{
		".js":  api.LoaderJSX,
		".jsx": api.LoaderJSX,
		".css": api.LoaderCSS,
		".cur": api.LoaderFile,
	}
	for _, ext := range []string{".avif", ".webp", ".png", ".jpg", ".jpeg", ".gif", ".svg"} {
		l[ext] = api.LoaderFile
	}
	for _, ext := range []string{".woff", ".woff2", ".eot", ".ttf", ".otf"} {
		l[ext] = api.LoaderFile
	}
	return l
}

func resolveAll(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = settings.Resolve(base, p)
	}
	return out
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
