package plugins

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

const PrecompressName = "precompress"

var compressible = map[string]bool{
	".js":  true,
	".css": true,
	".map": true,
	".svg": true,
}

// Precompress writes a .gz sibling next to every text output so static file
// servers can skip compressing on the fly.
func Precompress(workingDir string) api.Plugin {
	return api.Plugin{
		Name: PrecompressName,
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}

				paths, err := OutputPaths(result, workingDir)
				if err != nil {
					return api.OnEndResult{}, err
				}

				count := 0
				for _, p := range paths {
					if !compressible[filepath.Ext(p)] {
						continue
					}
					if err := GzipFile(p); err != nil {
						return api.OnEndResult{}, err
					}
					count++
				}

				log.Debug().Int("files", count).Msg("Precompressed outputs")
				return api.OnEndResult{}, nil
			})
		},
	}
}

// GzipFile writes path.gz compressed at the best compression level.
func GzipFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return renameio.WriteFile(path+".gz", buf.Bytes(), 0o644)
}
