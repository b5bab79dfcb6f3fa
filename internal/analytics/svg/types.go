package svg

// Sample is one labelled value on a chart.
type Sample struct {
	Label string
	Value float64
}

// Options customises a chart.
type Options struct {
	Title       string
	Description string
	Width       int
	Height      int
	Color       string
	Fill        string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	// MaxLabels thins the x axis labels so long series stay legible.
	MaxLabels int
	ShowDots  bool
}

// Defaults for the console charts.
const (
	DefaultWidth     = 720
	DefaultHeight    = 240
	DefaultPadding   = 32.0
	DefaultTicks     = 5
	DefaultMaxLabels = 8
)

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.TickCount <= 0 {
		o.TickCount = DefaultTicks
	}
	if o.MaxLabels <= 0 {
		o.MaxLabels = DefaultMaxLabels
	}
	o.Color = fallback(o.Color, "#4f46e5")
	o.Fill = fallback(o.Fill, "rgba(79,70,229,0.12)")
	o.AxisColor = fallback(o.AxisColor, "#475569")
	o.GridColor = fallback(o.GridColor, "#e2e8f0")
	return o
}
