package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/contentforge/admin-console/internal/analytics"
)

// WriteReportCSV writes the overview followed by every loaded series. Each
// section is separated by a blank record so spreadsheets keep them apart.
func WriteReportCSV(w io.Writer, report analytics.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	for _, row := range overviewRows(report) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	for _, series := range report.Series {
		if series.Err != nil || len(series.Points) == 0 {
			continue
		}
		if err := writer.Write(nil); err != nil {
			return err
		}
		if err := writeSeries(writer, series); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV emits one series as date,value rows.
func WriteSeriesCSV(w io.Writer, series analytics.Series) error {
	writer := csv.NewWriter(w)
	if err := writeSeries(writer, series); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeSeries(writer *csv.Writer, series analytics.Series) error {
	if err := writer.Write([]string{"Date", series.Metric.Title()}); err != nil {
		return err
	}
	labels := series.Labels()
	for i, point := range series.Points {
		if err := writer.Write([]string{labels[i], formatFloat(point.Value)}); err != nil {
			return err
		}
	}
	return nil
}

func overviewRows(report analytics.Report) [][]string {
	o := report.Overview
	return [][]string{
		{"Period", report.Filter.Period},
		{"Days", strconv.Itoa(report.Filter.Days)},
		{"Generated At", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"Total Users", formatInt(o.TotalUsers)},
		{"Active Users", formatInt(o.ActiveUsers)},
		{"New Users This Month", formatInt(o.NewUsersThisMonth)},
		{"Content Groups", formatInt(o.TotalContentGroups)},
		{"Jobs Processed", formatInt(o.TotalJobsProcessed)},
		{"Jobs This Month", formatInt(o.TotalJobsThisMonth)},
		{"Avg Job Processing Time (s)", formatFloat(o.AvgJobProcessingTime)},
		{"AI Tokens Used", formatInt(o.AITokensUsed)},
		{"AI Tokens This Month", formatInt(o.AITokensThisMonth)},
		{"Monthly Revenue", formatFloat(o.MonthlyRevenue)},
		{"Conversion Rate (%)", formatFloat(o.ConversionRate)},
		{"Error Rate (%)", formatFloat(o.ErrorRate)},
		{"System Uptime (%)", formatFloat(o.SystemUptime)},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
