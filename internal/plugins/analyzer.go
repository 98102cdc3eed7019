package plugins

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/webassets/internal/metafile"
)

const (
	AnalyzerName = "analyzer"

	// ReportFilename is written to the output directory.
	ReportFilename = "report.html"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"kib": func(b int) string { return fmt.Sprintf("%.1f KiB", float64(b)/1024) },
	"pct": func(b, total int) string {
		if total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(b)*100/float64(total))
	},
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Bundle report</title></head>
<body>
<h1>Bundle report</h1>
<p>Total {{kib .Total}} in {{len .Outputs}} files</p>
<table>
<tr><th>Output</th><th>Size</th><th>Share</th></tr>
{{- range .Outputs}}
<tr><td>{{.Path}}</td><td>{{kib .Bytes}}</td><td>{{pct .Bytes $.Total}}</td></tr>
{{- end}}
</table>
<pre>{{.Analysis}}</pre>
</body>
</html>
`))

type report struct {
	Total    int
	Outputs  []metafile.OutputSize
	Analysis string
}

// Analyzer prints the esbuild bundle analysis to out and writes an HTML size
// report into outputDir after each successful build.
func Analyzer(outputDir string, out io.Writer) api.Plugin {
	return api.Plugin{
		Name: AnalyzerName,
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 || result.Metafile == "" {
					return api.OnEndResult{}, nil
				}

				path := filepath.Join(outputDir, ReportFilename)
				analysis, err := WriteReport(path, result.Metafile)
				if err != nil {
					return api.OnEndResult{}, err
				}
				if out != nil {
					fmt.Fprintln(out, analysis)
				}

				log.Info().Str("report", path).Msg("Wrote bundle report")
				return api.OnEndResult{}, nil
			})
		},
	}
}

// WriteReport renders the size report for the metafile to path and returns
// the text analysis.
func WriteReport(path, rawMetafile string) (string, error) {
	meta, err := metafile.Parse(rawMetafile)
	if err != nil {
		return "", err
	}

	r := report{
		Outputs:  meta.Sizes(),
		Analysis: api.AnalyzeMetafile(rawMetafile, api.AnalyzeMetafileOptions{}),
	}
	for _, o := range r.Outputs {
		r.Total += o.Bytes
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return r.Analysis, nil
}
