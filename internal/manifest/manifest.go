// Package manifest writes and reads the build manifest mapping entry names to
// their content hashed output files. The layout follows webpack-bundle-tracker
// so existing server side loaders can consume it unchanged.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/wolfeidau/webassets/internal/metafile"
)

const (
	StatusDone  = "done"
	StatusError = "error"

	// Filename is the name of the manifest inside the assets directory.
	Filename = "manifest.json"
)

var (
	// ErrUnknownEntry is returned by Tags for an entry missing from the manifest.
	ErrUnknownEntry = errors.New("entry not found in manifest")

	// ErrNotReady is returned when the manifest records a failed build.
	ErrNotReady = errors.New("manifest status is not done")
)

type Manifest struct {
	Status     string              `json:"status"`
	PublicPath string              `json:"publicPath,omitempty"`
	Chunks     map[string][]string `json:"chunks,omitempty"`
	Assets     map[string]Asset    `json:"assets,omitempty"`
	Error      string              `json:"error,omitempty"`
	Message    string              `json:"message,omitempty"`
}

type Asset struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	PublicPath string `json:"publicPath"`
}

// Layout describes where the build ran and wrote its outputs, used to turn
// metafile paths into manifest names.
type Layout struct {
	// WorkingDir is the esbuild working directory metafile paths are relative to
	WorkingDir string
	// OutputDir is the absolute output directory
	OutputDir string
	// PublicPath is the URL prefix of OutputDir
	PublicPath string
	// Entries maps entry names to absolute input paths
	Entries map[string]string
}

// Failed returns the manifest recorded for a failed build.
func Failed(message string) *Manifest {
	return &Manifest{
		Status:  StatusError,
		Error:   "BuildError",
		Message: message,
	}
}

// FromMetafile builds the manifest for a successful build.
func FromMetafile(meta *metafile.Metafile, layout Layout) (*Manifest, error) {
	m := &Manifest{
		Status:     StatusDone,
		PublicPath: layout.PublicPath,
		Chunks:     make(map[string][]string, len(layout.Entries)),
		Assets:     make(map[string]Asset, len(meta.Outputs)),
	}

	for _, outputPath := range meta.OutputPaths() {
		name, abs, err := layout.name(outputPath)
		if err != nil {
			return nil, err
		}
		m.Assets[name] = Asset{
			Name:       name,
			Path:       abs,
			PublicPath: joinURL(layout.PublicPath, name),
		}
	}

	for entry, input := range layout.Entries {
		rel, err := filepath.Rel(layout.WorkingDir, input)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve entry %s: %w", entry, err)
		}

		output, err := meta.EntryOutput(filepath.ToSlash(rel))
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry, err)
		}

		chunks, err := meta.EntryChunks(output)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry, err)
		}

		names := make([]string, 0, len(chunks))
		for _, c := range chunks {
			name, _, err := layout.name(c)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		m.Chunks[entry] = names
	}

	return m, nil
}

func (l Layout) name(outputPath string) (string, string, error) {
	abs := filepath.Join(l.WorkingDir, filepath.FromSlash(outputPath))
	rel, err := filepath.Rel(l.OutputDir, abs)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve output %s: %w", outputPath, err)
	}
	return filepath.ToSlash(rel), abs, nil
}

// Write atomically replaces the manifest at path.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Read loads the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Entries returns the entry names, sorted.
func (m *Manifest) Entries() []string {
	entries := make([]string, 0, len(m.Chunks))
	for e := range m.Chunks {
		entries = append(entries, e)
	}
	sort.Strings(entries)
	return entries
}

// Tags renders the script and stylesheet tags needed to load entry.
func (m *Manifest) Tags(entry string) (template.HTML, error) {
	if m.Status != StatusDone {
		return "", fmt.Errorf("%w: %s", ErrNotReady, m.Message)
	}

	chunks, ok := m.Chunks[entry]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntry, entry)
	}

	var b strings.Builder
	for _, name := range chunks {
		url := template.HTMLEscapeString(m.url(name))
		switch filepath.Ext(name) {
		case ".css":
			fmt.Fprintf(&b, `<link rel="stylesheet" href="%s">`+"\n", url)
		case ".js":
			fmt.Fprintf(&b, `<script type="module" src="%s"></script>`+"\n", url)
		}
	}

	return template.HTML(b.String()), nil //nolint:gosec
}

func (m *Manifest) url(name string) string {
	if a, ok := m.Assets[name]; ok && a.PublicPath != "" {
		return a.PublicPath
	}
	return joinURL(m.PublicPath, name)
}

func joinURL(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}
