package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Sentinel errors
var (
	// ErrMissingField is returned when a required setting is empty.
	ErrMissingField = errors.New("missing required setting")

	// ErrInvalidFallback is returned when a fallback target is neither a module name nor false.
	ErrInvalidFallback = errors.New("fallback must be a module name or false")
)

// Settings is the project specific input to the build, normally kept next to
// the assets in a webassets.yaml file.
type Settings struct {
	Build       Build               `yaml:"build"`
	Entry       map[string]string   `yaml:"entry"`
	Aliases     map[string]string   `yaml:"aliases,omitempty"`
	Copy        []Copy              `yaml:"copy,omitempty"`
	Fallback    map[string]Fallback `yaml:"fallback,omitempty"`
	Provide     map[string]string   `yaml:"provide,omitempty"`
	Sass        Sass                `yaml:"sass,omitempty"`
	Precompress bool                `yaml:"precompress,omitempty"`
	LiveReload  LiveReload          `yaml:"liveReload,omitempty"`

	// Dir is the absolute directory containing the settings file.
	Dir string `yaml:"-"`
}

type Build struct {
	// Context is the base directory entry points and aliases are resolved against
	Context string `yaml:"context"`
	// AssetsPath is the output directory for built files
	AssetsPath string `yaml:"assetsPath"`
	// AssetsURL is the public URL prefix the output directory is served from
	AssetsURL string `yaml:"assetsURL"`
}

// Copy is a single copy instruction, both sides relative to the settings file.
type Copy struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type Sass struct {
	// Binary is the dart-sass executable, it must support --embedded
	Binary       string   `yaml:"binary,omitempty"`
	IncludePaths []string `yaml:"includePaths,omitempty"`
}

type LiveReload struct {
	Listen string `yaml:"listen,omitempty"`
}

// Fallback replaces a bare module which can't be resolved. An empty Module
// means the import resolves to an empty module.
type Fallback struct {
	Module string
}

// Empty reports whether the fallback resolves to an empty module.
func (f Fallback) Empty() bool {
	return f.Module == ""
}

func (f *Fallback) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return ErrInvalidFallback
	}

	if value.Tag == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		if b {
			return ErrInvalidFallback
		}
		f.Module = ""
		return nil
	}

	return value.Decode(&f.Module)
}

func (f Fallback) MarshalYAML() (any, error) {
	if f.Empty() {
		return false, nil
	}
	return f.Module, nil
}

// Load reads the settings file at path, resolving the context and assets
// directories relative to the directory containing it.
func Load(path string) (*Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	return s, nil
}

// Parse decodes settings from data, treating dir as the settings file directory.
func Parse(data []byte, dir string) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	s.Dir = dir
	if s.Build.Context != "" {
		s.Build.Context = Resolve(dir, s.Build.Context)
	}
	if s.Build.AssetsPath != "" {
		s.Build.AssetsPath = Resolve(dir, s.Build.AssetsPath)
	}

	return &s, nil
}

// Validate checks the settings required to assemble a build.
func (s *Settings) Validate() error {
	if s.Build.Context == "" {
		return fmt.Errorf("%w: build.context", ErrMissingField)
	}
	if s.Build.AssetsPath == "" {
		return fmt.Errorf("%w: build.assetsPath", ErrMissingField)
	}
	if s.Build.AssetsURL == "" {
		return fmt.Errorf("%w: build.assetsURL", ErrMissingField)
	}
	if len(s.Entry) == 0 {
		return fmt.Errorf("%w: entry", ErrMissingField)
	}
	return nil
}

// Resolve returns p as an absolute path, joining it to base when relative.
// Absolute values of p are returned cleaned.
func Resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	joined := filepath.Join(base, p)
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return joined
}
