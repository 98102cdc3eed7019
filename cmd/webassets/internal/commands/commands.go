package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/webassets/internal/assets"
	"github.com/wolfeidau/webassets/internal/settings"
	"github.com/wolfeidau/webassets/internal/telemetry"
)

const serviceName = "webassets"

type Globals struct {
	Debug   bool
	Version string
	Tracing bool
}

// BuildFlags are shared by the build and watch commands.
type BuildFlags struct {
	Settings string `help:"path to the settings file" default:"webassets.yaml" env:"WEBASSETS_SETTINGS" type:"path"`
	Report   string `help:"write the bundle size report when set to any value" env:"npm_config_report"`
}

// config loads the settings file and assembles the build for env.
func (f BuildFlags) config(env assets.Env) (*assets.Config, error) {
	s, err := settings.Load(f.Settings)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	env.Report = f.Report
	return assets.Assemble(s, env), nil
}

// startTelemetry installs the OTLP exporters when tracing is on and returns
// a func flushing them.
func startTelemetry(ctx context.Context, log zerolog.Logger, globals *Globals) func() {
	if !globals.Tracing {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.Init(ctx, serviceName, globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		shutdown = telemetry.Noop
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
