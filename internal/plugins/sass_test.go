package plugins

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSassCompiler_CloseUnstarted(t *testing.T) {
	c := &sassCompiler{}
	require.NoError(t, c.close())
}

func TestSassCompiler_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"app.scss": "$c: red;\nbody { color: $c; }\n"})

	c := &sassCompiler{opts: SassOptions{Binary: filepath.Join(dir, "no-such-sass")}}
	_, err := c.compile(filepath.Join(dir, "app.scss"))
	require.ErrorContains(t, err, "failed to start sass compiler")
}

func TestSass_Build(t *testing.T) {
	binary, err := exec.LookPath(DefaultSassBinary)
	if err != nil {
		t.Skip("dart-sass is not installed")
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"entry.js":           "import './app.scss';\n",
		"app.scss":           "@use 'theme';\n.nav { .item { color: theme.$primary; } }\n",
		"vendor/_theme.scss": "$primary: #336699;\n",
		"legacy.sass":        ".legacy\n  margin: 0\n",
		"entry-legacy.js":    "import './legacy.sass';\n",
	})

	opts := SassOptions{Binary: binary, IncludePaths: []string{filepath.Join(dir, "vendor")}}

	out := bundle(t, dir, "entry.js", nil, Sass(opts))
	assert.Contains(t, out, ".nav .item")
	assert.Contains(t, out, "#336699")

	out = bundle(t, dir, "entry-legacy.js", nil, Sass(opts))
	assert.Contains(t, out, ".legacy")
}
