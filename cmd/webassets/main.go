package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/webassets/cmd/webassets/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd `cmd:"" help:"Build the assets once"`
		Watch   commands.WatchCmd `cmd:"" help:"Build the assets and rebuild on change"`
		Debug   bool              `help:"Enable debug mode."`
		Tracing bool              `help:"Export build traces and metrics over OTLP." env:"WEBASSETS_TRACING"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("webassets"),
		kong.Description("Bundle JavaScript, stylesheets and static assets with esbuild."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Tracing: cli.Tracing})
	cmd.FatalIfErrorf(err)
}
