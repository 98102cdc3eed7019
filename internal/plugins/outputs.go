package plugins

import (
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/webassets/internal/metafile"
)

// OutputPaths returns the absolute paths written by a build. esbuild only
// fills OutputFiles for some write modes so the metafile is used otherwise.
func OutputPaths(result *api.BuildResult, workingDir string) ([]string, error) {
	if len(result.OutputFiles) > 0 {
		paths := make([]string, len(result.OutputFiles))
		for i, f := range result.OutputFiles {
			paths[i] = f.Path
		}
		return paths, nil
	}

	if result.Metafile == "" {
		return nil, nil
	}

	meta, err := metafile.Parse(result.Metafile)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(meta.Outputs))
	for _, p := range meta.OutputPaths() {
		paths = append(paths, filepath.Join(workingDir, filepath.FromSlash(p)))
	}
	return paths, nil
}
