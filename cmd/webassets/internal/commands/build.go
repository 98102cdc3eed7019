package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfeidau/webassets/internal/assets"
	"github.com/wolfeidau/webassets/internal/logger"
)

type BuildCmd struct {
	BuildFlags `embed:""`
	Mode       string `help:"build mode (production or development)" default:"production" env:"NODE_ENV"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush := startTelemetry(ctx, log, globals)
	defer flush()

	cfg, err := c.config(assets.Env{Mode: assets.Mode(c.Mode)})
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Str("mode", c.Mode).Str("settings", c.Settings).Msg("Starting build")

	return assets.New(cfg).Build(ctx)
}
