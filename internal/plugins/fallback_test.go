package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfeidau/webassets/internal/settings"
)

func TestFallback_Build(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"entry.js":                              "import zlib from 'zlib';\nimport url from 'url';\nimport installed from 'stream';\nconsole.log(zlib, url, installed);\n",
		"node_modules/browserify-zlib/index.js": "module.exports = 'zlib-replacement';\n",
		"node_modules/stream/index.js":          "module.exports = 'installed-stream';\n",
	})

	out := bundle(t, dir, "entry.js", nil, Fallback(map[string]settings.Fallback{
		"zlib":   {Module: "browserify-zlib"},
		"url":    {},
		"stream": {Module: "stream-browserify"},
	}))

	assert.Contains(t, out, "zlib-replacement")
	assert.Contains(t, out, "module.exports = {}")
	assert.Contains(t, out, "installed-stream")
}
