package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/contentforge/admin-console/internal/analytics"
	"github.com/contentforge/admin-console/internal/analytics/svg"
	"github.com/contentforge/admin-console/report"
)

// Renderer converts an HTML document into a PDF. *report.Client satisfies it.
type Renderer interface {
	Render(ctx context.Context, doc report.Document) ([]byte, error)
}

// PDFExporter prints analytics reports through Gotenberg.
type PDFExporter struct {
	renderer Renderer
}

// NewPDFExporter wires the exporter to a renderer.
func NewPDFExporter(renderer Renderer) *PDFExporter {
	return &PDFExporter{renderer: renderer}
}

// RenderReport lays the report out as HTML and converts it.
func (p *PDFExporter) RenderReport(ctx context.Context, rep analytics.Report) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("pdf exporter not initialised")
	}
	html, err := BuildHTML(rep)
	if err != nil {
		return nil, err
	}
	return p.renderer.Render(ctx, report.Document{
		Name:      "analytics-" + rep.Filter.Key() + ".html",
		HTML:      html,
		Landscape: true,
	})
}

type pdfChart struct {
	Title string
	Total string
	SVG   template.HTML
	Err   string
}

type pdfData struct {
	Report  analytics.Report
	Metrics [][2]string
	Charts  []pdfChart
}

var printer = message.NewPrinter(language.English)

var pdfTemplate = template.Must(template.New("analytics").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Platform analytics</title>
<style>
body{font-family:sans-serif;margin:24px;color:#0f172a}
h1{font-size:20px;margin-bottom:4px}
.meta{color:#64748b;font-size:12px;margin-bottom:16px}
table{width:100%;border-collapse:collapse;margin-bottom:16px}
th,td{border:1px solid #e2e8f0;padding:6px;font-size:12px}
td.value{text-align:right}
section{page-break-inside:avoid;margin-bottom:24px}
.error{color:#b91c1c}
</style></head><body>
<h1>Platform analytics</h1>
<p class="meta">{{.Report.Filter.Period}} over {{.Report.Filter.Days}} days, generated {{.Report.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
<section><table><tbody>
{{range .Metrics}}<tr><th>{{index . 0}}</th><td class="value">{{index . 1}}</td></tr>
{{end}}</tbody></table></section>
{{range .Charts}}<section><h2>{{.Title}}</h2>
{{if .Err}}<p class="error">{{.Err}}</p>{{else}}<p class="meta">Total {{.Total}}</p>{{.SVG}}{{end}}
</section>
{{end}}</body></html>`))

// BuildHTML renders the printable document of a report.
func BuildHTML(rep analytics.Report) (string, error) {
	o := rep.Overview
	data := pdfData{
		Report: rep,
		Metrics: [][2]string{
			{"Total users", printer.Sprintf("%d", o.TotalUsers)},
			{"Active users", printer.Sprintf("%d (%.1f%%)", o.ActiveUsers, o.ActiveShare())},
			{"Content groups", printer.Sprintf("%d", o.TotalContentGroups)},
			{"Jobs processed", printer.Sprintf("%d", o.TotalJobsProcessed)},
			{"Avg job processing time", printer.Sprintf("%.1fs", o.AvgJobProcessingTime)},
			{"AI tokens used", printer.Sprintf("%d", o.AITokensUsed)},
			{"Monthly revenue", printer.Sprintf("$%.2f", o.MonthlyRevenue)},
			{"Conversion rate", printer.Sprintf("%.1f%%", o.ConversionRate)},
			{"System health", fmt.Sprintf("%s (uptime %.1f%%, errors %.1f%%)", o.Health(), o.SystemUptime, o.ErrorRate)},
		},
	}
	for _, series := range rep.Series {
		chart := pdfChart{Title: series.Metric.Title(), Total: printer.Sprintf("%.0f", series.Total())}
		switch {
		case series.Err != nil:
			chart.Err = "Unavailable: " + series.Err.Error()
		case len(series.Points) == 0:
			chart.Err = "No data for this range"
		default:
			rendered, err := Chart(series)
			if err != nil {
				return "", err
			}
			chart.SVG = rendered
		}
		data.Charts = append(data.Charts, chart)
	}
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Chart draws the series the way the analytics page does: token usage as
// bars, everything else as a line.
func Chart(series analytics.Series) (template.HTML, error) {
	samples := make([]svg.Sample, len(series.Points))
	labels := series.Labels()
	for i, p := range series.Points {
		samples[i] = svg.Sample{Label: labels[i], Value: p.Value}
	}
	opts := svg.Options{Title: series.Metric.Title(), Description: series.Metric.Title() + " over the selected range"}
	if series.Metric == analytics.MetricTokens {
		opts.Color = "#7c3aed"
		return svg.Bars(samples, opts)
	}
	if series.Metric == analytics.MetricRevenue {
		opts.Color = "#059669"
		opts.Fill = "rgba(5,150,105,0.12)"
	}
	opts.ShowDots = len(samples) <= 31
	return svg.Line(samples, opts)
}
