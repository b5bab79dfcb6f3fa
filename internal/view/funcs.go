package view

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatNumber":   formatNumber,
		"formatDecimal":  formatDecimal,
		"formatMoney":    formatMoney,
		"formatDuration": formatDuration,
		"percent":        percent,
		"initials":       initials,
		"statusClass":    statusClass,
		"add":            func(a, b int) int { return a + b },
		"sub":            func(a, b int) int { return a - b },
		"toJSON":         toJSON,
		"join":           strings.Join,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format("02 Jan 2006 15:04")
}

func formatNumber(v any) string {
	switch n := v.(type) {
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	case float64:
		return printer.Sprintf("%d", int64(math.Round(n)))
	default:
		return fmt.Sprint(v)
	}
}

func formatDecimal(v float64) string {
	return printer.Sprintf("%.1f", v)
}

func formatMoney(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// formatDuration renders a millisecond count.
func formatDuration(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	d := time.Duration(ms * float64(time.Millisecond))
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func percent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

func initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	out := []rune{}
	for _, f := range fields {
		out = append(out, []rune(strings.ToUpper(f))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

func statusClass(status string) string {
	switch strings.ToLower(status) {
	case "active", "completed", "succeeded", "healthy", "ok", "success":
		return "badge-success"
	case "suspended", "failed", "banned", "error", "down":
		return "badge-danger"
	case "pending", "queued", "draft", "warning", "degraded":
		return "badge-warning"
	case "running", "in_progress", "info":
		return "badge-info"
	default:
		return "badge-muted"
	}
}

func toJSON(v any) template.JS {
	raw, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(raw)
}
