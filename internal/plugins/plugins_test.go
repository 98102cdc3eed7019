package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

// bundle builds entry in memory and returns the concatenated outputs.
func bundle(t *testing.T, dir, entry string, configure func(*api.BuildOptions), plugins ...api.Plugin) string {
	t.Helper()

	opts := api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: dir,
		Outdir:        filepath.Join(dir, "out"),
		Bundle:        true,
		Platform:      api.PlatformBrowser,
		Format:        api.FormatESModule,
		Target:        api.ES2017,
		Write:         false,
		LogLevel:      api.LogLevelSilent,
		Plugins:       plugins,
	}
	if configure != nil {
		configure(&opts)
	}

	result := api.Build(opts)
	for _, msg := range result.Errors {
		t.Errorf("build error: %s", msg.Text)
	}
	require.Empty(t, result.Errors)

	var out strings.Builder
	for _, f := range result.OutputFiles {
		out.Write(f.Contents)
	}
	return out.String()
}
