package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyAll(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"node_modules/tinymce/skins/ui/skin.css":     "skin",
		"node_modules/tinymce/skins/ui/fonts/a.woff": "font",
		"images/favicon.ico":                         "icon",
	})

	dist := filepath.Join(dir, "static", "dist")
	err := CopyAll(context.Background(), []CopyPattern{
		{From: filepath.Join(dir, "node_modules", "tinymce", "skins"), To: filepath.Join(dist, "js", "skins")},
		{From: filepath.Join(dir, "images", "favicon.ico"), To: filepath.Join(dist, "favicon.ico")},
	})
	require.NoError(t, err)

	for path, want := range map[string]string{
		"js/skins/ui/skin.css":     "skin",
		"js/skins/ui/fonts/a.woff": "font",
		"favicon.ico":              "icon",
	} {
		got, err := os.ReadFile(filepath.Join(dist, path))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got), path)
	}
}

func TestCopyAll_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyAll(context.Background(), []CopyPattern{{From: filepath.Join(dir, "missing"), To: filepath.Join(dir, "out")}})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchCopies(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"images/logo.svg": "v1"})

	from := filepath.Join(dir, "images")
	to := filepath.Join(dir, "dist", "images")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watchCopies(ctx, []CopyPattern{{From: from, To: to}}))

	writeFiles(t, dir, map[string]string{"images/logo.svg": "v2"})

	require.Eventually(t, func() bool {
		got, err := os.ReadFile(filepath.Join(to, "logo.svg"))
		return err == nil && string(got) == "v2"
	}, 5*time.Second, 20*time.Millisecond)
}
