package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders an area line chart of the samples.
func Line(samples []Sample, opts Options) (template.HTML, error) {
	f, err := newFrame(samples, opts)
	if err != nil {
		return "", err
	}
	var path strings.Builder
	for i, s := range samples {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, f.point(i), f.y(s.Value))
	}
	line := strings.TrimSpace(path.String())

	var b strings.Builder
	f.open(&b, "line")
	area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", line, f.point(len(samples)-1), f.baseline(), f.point(0), f.baseline())
	fmt.Fprintf(&b, `<path d="%s" fill="%s" stroke="none" aria-hidden="true"></path>`, area, f.opts.Fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, line, f.opts.Color)
	if f.opts.ShowDots {
		for i, s := range samples {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s: %s</title></circle>`,
				f.point(i), f.y(s.Value), f.opts.Color, template.HTMLEscapeString(s.Label), formatTick(s.Value))
		}
	}
	f.labels(&b, samples, f.point)
	return f.close(&b), nil
}
