package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const (
	SassName = "sass"

	// DefaultSassBinary is looked up on PATH, it must be dart-sass 1.63 or later.
	DefaultSassBinary = "sass"
)

type SassOptions struct {
	Binary       string
	IncludePaths []string
	Minify       bool
}

// Sass compiles .scss and .sass stylesheets with the dart-sass embedded
// compiler and hands the CSS to esbuild. The compiler is only started when
// the first stylesheet is loaded.
func Sass(opts SassOptions) api.Plugin {
	return api.Plugin{
		Name: SassName,
		Setup: func(build api.PluginBuild) {
			c := &sassCompiler{opts: opts}

			build.OnLoad(api.OnLoadOptions{Filter: `\.s[ac]ss$`},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					css, err := c.compile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{
						Contents:   &css,
						ResolveDir: filepath.Dir(args.Path),
						Loader:     api.LoaderCSS,
					}, nil
				})

			build.OnDispose(func() {
				if err := c.close(); err != nil {
					log.Warn().Err(err).Msg("Failed to stop sass compiler")
				}
			})
		},
	}
}

type sassCompiler struct {
	opts       SassOptions
	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

func (c *sassCompiler) compile(path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	t, err := c.start()
	if err != nil {
		return "", err
	}

	syntax := godartsass.SourceSyntaxSCSS
	if strings.HasSuffix(path, ".sass") {
		syntax = godartsass.SourceSyntaxSASS
	}

	style := godartsass.OutputStyleExpanded
	if c.opts.Minify {
		style = godartsass.OutputStyleCompressed
	}

	result, err := t.Execute(godartsass.Args{
		Source:       string(source),
		SourceSyntax: syntax,
		OutputStyle:  style,
		IncludePaths: append([]string{filepath.Dir(path)}, c.opts.IncludePaths...),
	})
	if err != nil {
		return "", fmt.Errorf("failed to compile %s: %w", path, err)
	}

	return result.CSS, nil
}

func (c *sassCompiler) start() (*godartsass.Transpiler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transpiler != nil {
		return c.transpiler, nil
	}

	binary := c.opts.Binary
	if binary == "" {
		binary = DefaultSassBinary
	}

	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: binary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start sass compiler %q: %w", binary, err)
	}

	log.Debug().Str("binary", binary).Msg("Started sass compiler")
	c.transpiler = t
	return t, nil
}

func (c *sassCompiler) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transpiler == nil {
		return nil
	}
	err := c.transpiler.Close()
	c.transpiler = nil
	return err
}
