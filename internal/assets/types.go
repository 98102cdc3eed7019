package assets

import (
	"errors"
	"sync"

	"github.com/wolfeidau/webassets/internal/metafile"
)

// ErrBuildFailed is returned when esbuild reports errors.
var ErrBuildFailed = errors.New("esbuild failed with errors")

// Pipeline runs the assembled build, once or on every change
type Pipeline struct {
	config   *Config
	metadata *metafile.Metafile
	mu       sync.RWMutex
}

// New creates a new asset pipeline with the given configuration
func New(config *Config) *Pipeline {
	return &Pipeline{
		config: config,
	}
}

// Config returns the assembled configuration.
func (p *Pipeline) Config() *Config {
	return p.config
}

// Metadata returns the metafile of the last successful build, nil before it.
func (p *Pipeline) Metadata() *metafile.Metafile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata
}

func (p *Pipeline) setMetadata(m *metafile.Metafile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata = m
}
