package analytics

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// Overview is the platform summary served by /admin/analytics/overview.
type Overview struct {
	TotalUsers           int64   `json:"totalUsers"`
	ActiveUsers          int64   `json:"activeUsers"`
	NewUsersToday        int64   `json:"newUsersToday"`
	NewUsersThisWeek     int64   `json:"newUsersThisWeek"`
	NewUsersThisMonth    int64   `json:"newUsersThisMonth"`
	TotalContentGroups   int64   `json:"totalContentGroups"`
	TotalJobsProcessed   int64   `json:"totalJobsProcessed"`
	TotalJobsToday       int64   `json:"totalJobsToday"`
	TotalJobsThisWeek    int64   `json:"totalJobsThisWeek"`
	TotalJobsThisMonth   int64   `json:"totalJobsThisMonth"`
	AvgJobProcessingTime float64 `json:"avgJobProcessingTime"`
	SystemUptime         float64 `json:"systemUptime"`
	AITokensUsed         int64   `json:"aiTokensUsed"`
	AITokensToday        int64   `json:"aiTokensToday"`
	AITokensThisWeek     int64   `json:"aiTokensThisWeek"`
	AITokensThisMonth    int64   `json:"aiTokensThisMonth"`
	MonthlyRevenue       float64 `json:"monthlyRevenue"`
	ConversionRate       float64 `json:"conversionRate"`
	ErrorRate            float64 `json:"errorRate"`
	CPUUsage             float64 `json:"cpuUsage"`
	MemoryUsage          float64 `json:"memoryUsage"`
	DiskUsage            float64 `json:"diskUsage"`
}

// Health grades the average of CPU, memory and disk usage.
type Health string

const (
	HealthExcellent Health = "Excellent"
	HealthGood      Health = "Good"
	HealthWarning   Health = "Warning"
)

// Status maps the grade onto the console's status badges.
func (h Health) Status() string {
	switch h {
	case HealthExcellent:
		return "healthy"
	case HealthGood:
		return "info"
	default:
		return "warning"
	}
}

// ResourceLoad is the mean of the three resource gauges.
func (o Overview) ResourceLoad() float64 {
	return (o.CPUUsage + o.MemoryUsage + o.DiskUsage) / 3
}

// Health classifies ResourceLoad: below 50 is excellent, below 75 good.
func (o Overview) Health() Health {
	switch load := o.ResourceLoad(); {
	case load < 50:
		return HealthExcellent
	case load < 75:
		return HealthGood
	default:
		return HealthWarning
	}
}

// ActiveShare is the percentage of users active in the period.
func (o Overview) ActiveShare() float64 {
	if o.TotalUsers == 0 {
		return 0
	}
	return float64(o.ActiveUsers) / float64(o.TotalUsers) * 100
}

// Point is one sample of a time series.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// Metric names one of the series the backend can chart.
type Metric string

const (
	MetricUsers   Metric = "users"
	MetricContent Metric = "content"
	MetricRevenue Metric = "revenue"
	MetricTokens  Metric = "tokens"
)

// Metrics lists the charted series in display order.
var Metrics = []Metric{MetricUsers, MetricContent, MetricRevenue, MetricTokens}

var metricPaths = map[Metric]string{
	MetricUsers:   "/admin/analytics/users/growth",
	MetricContent: "/admin/analytics/content/trends",
	MetricRevenue: "/admin/analytics/revenue/growth",
	MetricTokens:  "/admin/analytics/ai/tokens",
}

var metricTitles = map[Metric]string{
	MetricUsers:   "User growth",
	MetricContent: "Content generation",
	MetricRevenue: "Revenue growth",
	MetricTokens:  "AI token usage",
}

// Title is the human label of the metric.
func (m Metric) Title() string {
	if title, ok := metricTitles[m]; ok {
		return title
	}
	return string(m)
}

// Periods are the supported bucket sizes.
var Periods = []string{"daily", "weekly", "monthly"}

// Ranges are the selectable lookback windows in days.
var Ranges = []int{7, 30, 90, 365}

const (
	defaultPeriod = "daily"
	defaultDays   = 30
)

// Filter selects the bucket size and lookback window of every series.
type Filter struct {
	Period string
	Days   int
}

// DefaultFilter is daily buckets over the last 30 days.
func DefaultFilter() Filter {
	return Filter{Period: defaultPeriod, Days: defaultDays}
}

// ParseFilter reads period and days from a query string. Unknown values fall
// back to the defaults.
func ParseFilter(q url.Values) Filter {
	f := DefaultFilter()
	if p := q.Get("period"); slices.Contains(Periods, p) {
		f.Period = p
	}
	if d, err := strconv.Atoi(q.Get("days")); err == nil && slices.Contains(Ranges, d) {
		f.Days = d
	}
	return f
}

// Query is the backend query for the filter.
func (f Filter) Query() url.Values {
	return url.Values{"period": {f.Period}, "days": {strconv.Itoa(f.Days)}}
}

// Key identifies the filter in cache keys and export file names.
func (f Filter) Key() string {
	return fmt.Sprintf("%s-%dd", f.Period, f.Days)
}

// Series is one charted metric.
type Series struct {
	Metric Metric
	Points []Point
	Err    error `json:"-"`
}

// Total sums the series values.
func (s Series) Total() float64 {
	var total float64
	for _, p := range s.Points {
		total += p.Value
	}
	return total
}

// Labels returns the point labels, preferring Label over Date.
func (s Series) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Label
		if out[i] == "" {
			out[i] = p.Date
		}
	}
	return out
}

// Report is everything the analytics page and exports show.
type Report struct {
	Filter      Filter
	Overview    Overview
	Series      []Series
	GeneratedAt time.Time
}

// SeriesFor returns the series of the metric, if loaded.
func (r Report) SeriesFor(m Metric) (Series, bool) {
	for _, s := range r.Series {
		if s.Metric == m {
			return s, true
		}
	}
	return Series{}, false
}
