package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/webassets/internal/manifest"
	"github.com/wolfeidau/webassets/internal/settings"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func fixture(t *testing.T) *settings.Settings {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"js/base.js":         "import { greet } from '@js/util';\nimport './base.css';\ngreet(process.env.NODE_ENV);\n",
		"js/lib/util.js":     "export function greet(name) { console.log('hello ' + name); }\n",
		"js/base.css":        "body { color: red; }\n",
		"js/admin.js":        "import { greet } from '@js/util';\ngreet('admin');\n",
		"images/favicon.ico": "icon",
	})

	return &settings.Settings{
		Build: settings.Build{
			Context:    filepath.Join(dir, "js"),
			AssetsPath: filepath.Join(dir, "static", "dist"),
			AssetsURL:  "/static/dist/",
		},
		Entry:   map[string]string{"base": "./base.js", "admin": "./admin.js"},
		Aliases: map[string]string{"@js/util": "./lib/util.js"},
		Copy:    []settings.Copy{{From: "images/favicon.ico", To: "static/dist/favicon.ico"}},
		Dir:     dir,
	}
}

func TestPipeline_Build(t *testing.T) {
	s := fixture(t)
	stale := filepath.Join(s.Build.AssetsPath, "js", "old.1234.js")
	writeFiles(t, s.Build.AssetsPath, map[string]string{"js/old.1234.js": "stale"})

	p := New(Assemble(s, Env{Mode: ModeProduction}))
	require.NoError(t, p.Build(context.Background()))

	m, err := manifest.Read(filepath.Join(s.Build.AssetsPath, manifest.Filename))
	require.NoError(t, err)
	assert.Equal(t, manifest.StatusDone, m.Status)
	assert.Equal(t, "/static/dist/", m.PublicPath)
	assert.ElementsMatch(t, []string{"admin", "base"}, m.Entries())

	base := m.Chunks["base"]
	require.NotEmpty(t, base)
	assert.True(t, strings.HasPrefix(base[0], "js/base."), base[0])
	assert.True(t, strings.HasPrefix(base[len(base)-1], "css/base."), base[len(base)-1])

	for _, chunk := range base {
		asset, ok := m.Assets[chunk]
		require.True(t, ok, chunk)
		assert.FileExists(t, asset.Path)
		assert.Equal(t, "/static/dist/"+chunk, asset.PublicPath)
	}

	js, err := os.ReadFile(m.Assets[base[0]].Path)
	require.NoError(t, err)
	assert.NotContains(t, string(js), "process.env.NODE_ENV")
	assert.Contains(t, string(js), "production")

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(s.Build.AssetsPath, "favicon.ico"))
	assert.FileExists(t, filepath.Join(s.Build.AssetsPath, MetafileName))

	meta := p.Metadata()
	require.NotNil(t, meta)
	assert.NotEmpty(t, meta.Outputs)
}

func TestPipeline_BuildDevelopment(t *testing.T) {
	s := fixture(t)
	existing := filepath.Join(s.Build.AssetsPath, "js", "old.1234.js")
	writeFiles(t, s.Build.AssetsPath, map[string]string{"js/old.1234.js": "previous run"})

	p := New(Assemble(s, Env{Mode: ModeDevelopment}))
	require.NoError(t, p.Build(context.Background()))

	assert.NoFileExists(t, existing)

	m, err := manifest.Read(filepath.Join(s.Build.AssetsPath, manifest.Filename))
	require.NoError(t, err)
	assert.Equal(t, manifest.StatusDone, m.Status)

	js, err := os.ReadFile(m.Assets[m.Chunks["base"][0]].Path)
	require.NoError(t, err)
	assert.Contains(t, string(js), "sourceMappingURL=data:")
}

func TestPipeline_BuildFailure(t *testing.T) {
	s := fixture(t)
	writeFiles(t, s.Build.Context, map[string]string{"base.js": "import './missing.js';\n"})

	p := New(Assemble(s, Env{Mode: ModeDevelopment}))
	err := p.Build(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "missing.js")
	assert.Nil(t, p.Metadata())

	m, err := manifest.Read(filepath.Join(s.Build.AssetsPath, manifest.Filename))
	require.NoError(t, err)
	assert.Equal(t, manifest.StatusError, m.Status)
	assert.Contains(t, m.Message, "missing.js")
}

func TestPipeline_Watch(t *testing.T) {
	s := fixture(t)
	s.LiveReload.Listen = "127.0.0.1:0"

	p := New(Assemble(s, Env{Mode: ModeDevelopment, Watch: true}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx)
	}()

	manifestPath := filepath.Join(s.Build.AssetsPath, manifest.Filename)
	require.Eventually(t, func() bool {
		m, err := manifest.Read(manifestPath)
		return err == nil && m.Status == manifest.StatusDone
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
