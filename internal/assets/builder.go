package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/webassets/internal/metafile"
	"github.com/wolfeidau/webassets/internal/telemetry"
)

const reportPluginName = "report"

// Build runs esbuild once with the configured settings and loads metadata
func (p *Pipeline) Build(ctx context.Context) error {
	bctx, err := p.context()
	if err != nil {
		return err
	}
	defer bctx.Dispose()

	done := make(chan api.BuildResult, 1)
	go func() {
		done <- bctx.Rebuild()
	}()

	var result api.BuildResult
	select {
	case <-ctx.Done():
		bctx.Cancel()
		<-done
		return ctx.Err()
	case result = <-done:
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrBuildFailed, result.Errors[0].Text)
	}
	return nil
}

// Watch builds and then rebuilds whenever an input changes until ctx is done.
func (p *Pipeline) Watch(ctx context.Context) error {
	bctx, err := p.context()
	if err != nil {
		return err
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to watch: %w", err)
	}

	log.Info().Str("context", p.config.Options.AbsWorkingDir).Msg("Watching for changes")
	<-ctx.Done()
	log.Info().Msg("Stopped watching")
	return nil
}

func (p *Pipeline) context() (api.BuildContext, error) {
	opts := p.config.Options
	opts.Plugins = append(append([]api.Plugin{}, opts.Plugins...), p.reportPlugin())

	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Str("error", msg.Text).Msg("Invalid build options")
		}
		if len(ctxErr.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrBuildFailed, ctxErr.Errors[0].Text)
		}
		return nil, ErrBuildFailed
	}
	return bctx, nil
}

// reportPlugin logs each build, records telemetry and caches the metafile.
// It is registered last so it sees the results of the other plugins.
func (p *Pipeline) reportPlugin() api.Plugin {
	return api.Plugin{
		Name: reportPluginName,
		Setup: func(build api.PluginBuild) {
			var (
				mu      sync.Mutex
				started time.Time
				buildID string
				span    trace.Span
			)

			build.OnStart(func() (api.OnStartResult, error) {
				mu.Lock()
				defer mu.Unlock()

				started = time.Now()
				buildID = uuid.NewString()
				_, span = telemetry.Tracer().Start(context.Background(), "webassets.build",
					trace.WithAttributes(
						attribute.String("build.id", buildID),
						attribute.String("build.mode", string(p.config.Env.Mode)),
					))

				log.Info().
					Str("build_id", buildID).
					Str("mode", string(p.config.Env.Mode)).
					Strs("entrypoints", entryNames(p.config.Entries)).
					Msg("Building assets")
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				defer mu.Unlock()

				p.recordBuild(buildID, started, span, result)
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (p *Pipeline) recordBuild(buildID string, started time.Time, span trace.Span, result *api.BuildResult) {
	ctx := context.Background()
	m := telemetry.GetMetrics()
	duration := time.Since(started)
	attrs := metric.WithAttributes(attribute.String("mode", string(p.config.Env.Mode)))

	m.BuildsTotal.Add(ctx, 1, attrs)
	m.BuildErrorsTotal.Add(ctx, int64(len(result.Errors)), attrs)
	m.BuildWarningsTotal.Add(ctx, int64(len(result.Warnings)), attrs)
	m.BuildDuration.Record(ctx, float64(duration.Milliseconds()), attrs)

	if span != nil {
		defer span.End()
	}

	for _, msg := range result.Warnings {
		log.Warn().Str("build_id", buildID).Str("location", location(msg)).Msg(msg.Text)
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("build_id", buildID).Str("location", location(msg)).Str("error", msg.Text).Msg("Build error")
		}
		if span != nil {
			span.SetStatus(codes.Error, result.Errors[0].Text)
		}
		return
	}

	for _, file := range result.OutputFiles {
		m.OutputFilesTotal.Add(ctx, 1, attrs)
		m.OutputBytes.Record(ctx, int64(len(file.Contents)), attrs)
		log.Debug().Str("file", file.Path).Int("bytes", len(file.Contents)).Msg("Built file")
	}

	if err := p.writeMetafile(result.Metafile); err != nil {
		log.Error().Err(err).Msg("Failed to write metafile")
	}

	log.Info().
		Str("build_id", buildID).
		Dur("duration", duration).
		Int("warnings", len(result.Warnings)).
		Msg("Built assets")
}

// writeMetafile persists the metafile for tooling and caches the parsed form.
func (p *Pipeline) writeMetafile(raw string) error {
	if raw == "" {
		return nil
	}

	meta, err := metafile.Parse(raw)
	if err != nil {
		return err
	}
	p.setMetadata(meta)

	if err := os.MkdirAll(filepath.Dir(p.config.MetafilePath), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(p.config.MetafilePath, []byte(raw), 0o600)
}

func location(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
}

func entryNames(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
