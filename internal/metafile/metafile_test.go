package metafile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetafile = `{
  "inputs": {
    "base.js": {"bytes": 120, "imports": [{"path": "shared.js", "kind": "import-statement"}]},
    "shared.js": {"bytes": 40, "imports": []}
  },
  "outputs": {
    "dist/js/base.AAAA.js": {
      "bytes": 300,
      "entryPoint": "base.js",
      "cssBundle": "dist/css/base.CCCC.css",
      "imports": [
        {"path": "dist/js/chunk.BBBB.js", "kind": "import-statement"},
        {"path": "dist/js/lazy.DDDD.js", "kind": "dynamic-import"},
        {"path": "https://cdn.example.com/x.js", "kind": "import-statement", "external": true}
      ],
      "inputs": {"base.js": {"bytesInOutput": 100}}
    },
    "dist/js/base.AAAA.js.map": {"bytes": 900, "imports": [], "inputs": {}},
    "dist/js/chunk.BBBB.js": {
      "bytes": 50,
      "imports": [{"path": "dist/js/base.AAAA.js", "kind": "import-statement"}],
      "inputs": {"shared.js": {"bytesInOutput": 38}}
    },
    "dist/js/lazy.DDDD.js": {"bytes": 10, "imports": [], "inputs": {}},
    "dist/css/base.CCCC.css": {"bytes": 50, "entryPoint": "base.js", "imports": [], "inputs": {}}
  }
}`

func TestEntryChunks(t *testing.T) {
	m, err := Parse(sampleMetafile)
	require.NoError(t, err)

	out, err := m.EntryOutput("base.js")
	require.NoError(t, err)
	assert.Equal(t, "dist/js/base.AAAA.js", out)

	chunks, err := m.EntryChunks(out)
	require.NoError(t, err)

	want := []string{
		"dist/js/base.AAAA.js",
		"dist/js/chunk.BBBB.js",
		"dist/css/base.CCCC.css",
	}
	if diff := cmp.Diff(want, chunks); diff != "" {
		t.Errorf("EntryChunks() mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryOutput_NotFound(t *testing.T) {
	m, err := Parse(sampleMetafile)
	require.NoError(t, err)

	_, err = m.EntryOutput("missing.js")
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = m.EntryChunks("dist/js/missing.js")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSizes(t *testing.T) {
	m, err := Parse(sampleMetafile)
	require.NoError(t, err)

	sizes := m.Sizes()
	require.Len(t, sizes, 5)
	assert.Equal(t, OutputSize{Path: "dist/js/base.AAAA.js.map", Bytes: 900}, sizes[0])
	assert.Equal(t, "dist/css/base.CCCC.css", sizes[2].Path)
	assert.Equal(t, "dist/js/chunk.BBBB.js", sizes[3].Path)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("{")
	require.Error(t, err)
}
