package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders one bar per sample. Negative values hang below the baseline.
func Bars(samples []Sample, opts Options) (template.HTML, error) {
	f, err := newFrame(samples, opts)
	if err != nil {
		return "", err
	}
	slotWidth := f.width / float64(len(samples))
	barWidth := math.Max(slotWidth*0.7, 1)

	var b strings.Builder
	f.open(&b, "bar")
	for i, s := range samples {
		top := f.y(math.Max(s.Value, 0))
		height := math.Abs(f.y(s.Value) - f.baseline())
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" rx="2"><title>%s: %s</title></rect>`,
			f.slot(i)-barWidth/2, top, barWidth, height, f.opts.Color,
			template.HTMLEscapeString(s.Label), formatTick(s.Value))
	}
	f.labels(&b, samples, f.slot)
	return f.close(&b), nil
}
