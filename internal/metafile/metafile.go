// Package metafile decodes the esbuild metafile and answers the questions the
// manifest, clean and analyzer plugins ask of it.
package metafile

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrEntryNotFound is returned when no output was produced for an entry point.
var ErrEntryNotFound = errors.New("entrypoint not found in metadata")

type Metafile struct {
	Inputs  map[string]Input  `json:"inputs"`
	Outputs map[string]Output `json:"outputs"`
}

type Input struct {
	Bytes   int      `json:"bytes"`
	Imports []Import `json:"imports"`
	Format  string   `json:"format,omitempty"`
}

type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

type Output struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []Import                `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
	CSSBundle  string                  `json:"cssBundle,omitempty"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// OutputSize is the size of a single output file.
type OutputSize struct {
	Path  string
	Bytes int
}

// Parse decodes a metafile as returned in api.BuildResult.Metafile.
func Parse(data string) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EntryOutput returns the path of the output generated for the given entry
// point input path. A JavaScript entry importing CSS yields two outputs for
// the same entry point, the stylesheet is reachable through CSSBundle.
func (m *Metafile) EntryOutput(entryPoint string) (string, error) {
	var candidates []string
	bundles := map[string]bool{}
	for _, outputPath := range m.OutputPaths() {
		info := m.Outputs[outputPath]
		if info.EntryPoint != entryPoint || strings.HasSuffix(outputPath, ".map") {
			continue
		}
		candidates = append(candidates, outputPath)
		if info.CSSBundle != "" {
			bundles[info.CSSBundle] = true
		}
	}

	for _, c := range candidates {
		if !bundles[c] {
			return c, nil
		}
	}
	return "", ErrEntryNotFound
}

// EntryChunks returns the ordered list of output paths needed to load the
// given entry output: the output itself, its static imports depth first, and
// finally its CSS bundle when present.
func (m *Metafile) EntryChunks(entryOutput string) ([]string, error) {
	info, ok := m.Outputs[entryOutput]
	if !ok {
		return nil, ErrEntryNotFound
	}

	chunks := []string{entryOutput}
	visited := map[string]bool{entryOutput: true}
	m.addDependencies(info, &chunks, visited)

	if info.CSSBundle != "" && !visited[info.CSSBundle] {
		chunks = append(chunks, info.CSSBundle)
	}

	return chunks, nil
}

func (m *Metafile) addDependencies(output Output, chunks *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		// dynamic imports are loaded on demand by the runtime
		if imp.External || imp.Kind == "dynamic-import" {
			continue
		}
		if visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*chunks = append(*chunks, imp.Path)

		if chunkInfo, exists := m.Outputs[imp.Path]; exists {
			m.addDependencies(chunkInfo, chunks, visited)
		}
	}
}

// OutputPaths returns every output path, sorted.
func (m *Metafile) OutputPaths() []string {
	paths := make([]string, 0, len(m.Outputs))
	for p := range m.Outputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sizes returns the outputs ordered from largest to smallest.
func (m *Metafile) Sizes() []OutputSize {
	sizes := make([]OutputSize, 0, len(m.Outputs))
	for p, o := range m.Outputs {
		sizes = append(sizes, OutputSize{Path: p, Bytes: o.Bytes})
	}
	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].Bytes == sizes[j].Bytes {
			return sizes[i].Path < sizes[j].Path
		}
		return sizes[i].Bytes > sizes[j].Bytes
	})
	return sizes
}
