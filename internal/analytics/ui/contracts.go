package ui

import (
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/contentforge/admin-console/internal/analytics"
)

// Chart is one rendered series card.
type Chart struct {
	Metric analytics.Metric
	Title  string
	Total  float64
	Last   float64
	SVG    template.HTML
	Err    string
}

// Empty reports a loaded series without points.
func (c Chart) Empty() bool {
	return c.Err == "" && c.SVG == ""
}

// ViewModel combines the analytics report for rendering.
type ViewModel struct {
	Filter      analytics.Filter
	Overview    analytics.Overview
	Charts      []Chart
	Periods     []string
	Ranges      []int
	GeneratedAt time.Time
}

func (v ViewModel) query() string {
	return url.Values{"period": {v.Filter.Period}, "days": {strconv.Itoa(v.Filter.Days)}}.Encode()
}

// ExportURL links the csv or pdf export of the current filter.
func (v ViewModel) ExportURL(format string) string {
	return "/analytics/export." + format + "?" + v.query()
}

// RefreshURL is the cache refresh action for the current filter.
func (v ViewModel) RefreshURL() string {
	return "/analytics/refresh?" + v.query()
}

// ChartRenderer draws one series.
type ChartRenderer func(analytics.Series) (template.HTML, error)

// Build converts a report into the page model. A series that fails to
// render is shown as an error card.
func Build(report analytics.Report, render ChartRenderer) ViewModel {
	vm := ViewModel{
		Filter:      report.Filter,
		Overview:    report.Overview,
		Periods:     analytics.Periods,
		Ranges:      analytics.Ranges,
		GeneratedAt: report.GeneratedAt,
	}
	for _, series := range report.Series {
		chart := Chart{Metric: series.Metric, Title: series.Metric.Title(), Total: series.Total()}
		if n := len(series.Points); n > 0 {
			chart.Last = series.Points[n-1].Value
		}
		switch {
		case series.Err != nil:
			chart.Err = "This series could not be loaded."
		case len(series.Points) > 0:
			svg, err := render(series)
			if err != nil {
				chart.Err = "This series could not be drawn."
			} else {
				chart.SVG = svg
			}
		}
		vm.Charts = append(vm.Charts, chart)
	}
	return vm
}
