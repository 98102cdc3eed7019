package plugins

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
)

func TestChangedOutputs(t *testing.T) {
	hashes := map[string]string{}

	first := []api.OutputFile{
		{Path: "/dist/js/app.js", Hash: "a1"},
		{Path: "/dist/js/app.js.map", Hash: "m1"},
		{Path: "/dist/css/app.css", Hash: "c1"},
	}
	assert.Equal(t, []string{"/dist/js/app.js"}, ChangedOutputs(hashes, first))

	// nothing changed
	assert.Empty(t, ChangedOutputs(hashes, first))

	cssOnly := []api.OutputFile{
		{Path: "/dist/js/app.js", Hash: "a1"},
		{Path: "/dist/css/app.css", Hash: "c2"},
		{Path: "/dist/css/admin.css", Hash: "d1"},
	}
	assert.Equal(t, []string{"/dist/css/admin.css", "/dist/css/app.css"}, ChangedOutputs(hashes, cssOnly))

	script := []api.OutputFile{
		{Path: "/dist/js/app.js", Hash: "a2"},
		{Path: "/dist/css/app.css", Hash: "c3"},
	}
	assert.Equal(t, []string{"/dist/js/app.js"}, ChangedOutputs(hashes, script))
}

func TestChangedOutputs_NoOutputFiles(t *testing.T) {
	assert.Equal(t, []string{""}, ChangedOutputs(map[string]string{}, nil))
}

func TestLiveReload_InertWithoutWatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"entry.js": "console.log('no server');\n"})

	out := bundle(t, dir, "entry.js", nil, LiveReload(LiveReloadOptions{Addr: "127.0.0.1:0"}))
	assert.Contains(t, out, "no server")
}
