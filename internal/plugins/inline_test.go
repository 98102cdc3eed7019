package plugins

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
)

// not valid UTF-8 so esbuild always base64 encodes it
const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/x-icon;base64,"+base64.StdEncoding.EncodeToString([]byte("cur")), DataURL("image/x-icon", []byte("cur")))
}

func TestInline_Build(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"entry.js":  "import small from './small.png';\nimport big from './big.png';\nconsole.log(small, big);\n",
		"small.png": pngHeader,
		"big.png":   strings.Repeat("x", DefaultInlineLimit+1),
		"style.css": "body { cursor: url(./hand.cur), auto; }\n",
		"hand.cur":  "cursor",
	})

	loaders := func(opts *api.BuildOptions) {
		opts.Loader = map[string]api.Loader{".png": api.LoaderFile, ".cur": api.LoaderFile, ".css": api.LoaderCSS}
	}

	out := bundle(t, dir, "entry.js", loaders, Inline(DefaultInlineRules()))
	assert.Contains(t, out, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte(pngHeader)))
	assert.Contains(t, out, "big-")
	assert.NotContains(t, out, base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 30))))

	css := bundle(t, dir, "style.css", loaders, Inline(DefaultInlineRules()))
	assert.Contains(t, css, DataURL("image/x-icon", []byte("cursor")))
}
