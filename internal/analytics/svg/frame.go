package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

// ErrEmpty is returned for a chart without samples.
var ErrEmpty = errors.New("svg: samples required")

// frame maps sample indexes and values into the drawable viewport.
type frame struct {
	opts   Options
	width  float64
	height float64
	min    float64
	max    float64
	count  int
}

func newFrame(samples []Sample, opts Options) (*frame, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	opts = opts.withDefaults()
	f := &frame{
		opts:   opts,
		width:  float64(opts.Width) - 2*opts.Padding,
		height: float64(opts.Height) - 2*opts.Padding,
		count:  len(samples),
	}
	if f.width <= 0 || f.height <= 0 {
		return nil, errors.New("svg: viewport too small")
	}
	f.min, f.max = samples[0].Value, samples[0].Value
	for _, s := range samples[1:] {
		f.min = math.Min(f.min, s.Value)
		f.max = math.Max(f.max, s.Value)
	}
	f.min = math.Min(f.min, 0)
	f.max = math.Max(f.max, 0)
	if almostEqual(f.min, f.max) {
		f.max = f.min + 1
	}
	return f, nil
}

// x is the horizontal centre of slot i when the chart is divided into
// count slots.
func (f *frame) slot(i int) float64 {
	w := f.width / float64(f.count)
	return f.opts.Padding + w*float64(i) + w/2
}

// point is the horizontal position of sample i spread edge to edge.
func (f *frame) point(i int) float64 {
	if f.count == 1 {
		return f.opts.Padding + f.width/2
	}
	return f.opts.Padding + f.width*float64(i)/float64(f.count-1)
}

func (f *frame) y(v float64) float64 {
	return f.opts.Padding + f.height - (v-f.min)/(f.max-f.min)*f.height
}

func (f *frame) baseline() float64 {
	return f.y(0)
}

func (f *frame) open(b *strings.Builder, kind string) {
	titleID := makeID(f.opts.Title, kind+"-title")
	descID := makeID(f.opts.Title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s" class="chart chart-%s">`,
		f.opts.Width, f.opts.Height, titleID, descID, kind)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(f.opts.Title, "Chart")))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(f.opts.Description, "Time series")))

	for i := 0; i <= f.opts.TickCount; i++ {
		ratio := float64(i) / float64(f.opts.TickCount)
		value := f.min + (f.max-f.min)*ratio
		y := f.y(value)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`,
			f.opts.Padding, y, f.opts.Padding+f.width, y, f.opts.GridColor)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			f.opts.Padding-6, y+4, f.opts.AxisColor, formatTick(value))
	}
	fmt.Fprintf(b, `<g stroke="%s" stroke-width="1" aria-hidden="true">`, f.opts.AxisColor)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.opts.Padding, f.opts.Padding, f.opts.Padding, f.opts.Padding+f.height)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"></line>`, f.opts.Padding, f.baseline(), f.opts.Padding+f.width, f.baseline())
	b.WriteString("</g>")
}

// labels writes every n-th label so at most MaxLabels are shown. The last
// label is always kept.
func (f *frame) labels(b *strings.Builder, samples []Sample, at func(int) float64) {
	every := int(math.Ceil(float64(len(samples)) / float64(f.opts.MaxLabels)))
	if every < 1 {
		every = 1
	}
	for i, s := range samples {
		if i%every != 0 && i != len(samples)-1 {
			continue
		}
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			at(i), f.opts.Padding+f.height+16, f.opts.AxisColor, template.HTMLEscapeString(s.Label))
	}
}

func (f *frame) close(b *strings.Builder) template.HTML {
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
