// Package sim is the per-report simulation engine: one Simulator
// implementation per simulation type, a fixed-size 2D canvas that records
// draw operations and emits SVG frames, user-adjustable parameter state, and
// a cancellable animation clock. Selection happens once at report-open time;
// there is no per-frame dispatch on the type tag.
package sim

import (
	"fmt"
	"html"
	"strings"
)

// Canvas dimensions match the virtual apparatus viewport of the report
// document.
const (
	CanvasWidth  = 800
	CanvasHeight = 300
)

// Canvas is a fixed-size 2D surface. Draw calls append SVG elements in
// order; SVG() emits the completed frame. A canvas is reset and redrawn for
// every frame.
type Canvas struct {
	w, h int
	sb   strings.Builder
}

// NewCanvas creates the standard 800x300 simulation surface.
func NewCanvas() *Canvas {
	return &Canvas{w: CanvasWidth, h: CanvasHeight}
}

// Reset clears all recorded operations.
func (c *Canvas) Reset() { c.sb.Reset() }

// Background fills the whole surface.
func (c *Canvas) Background(fill string) {
	fmt.Fprintf(&c.sb, `<rect width="%d" height="%d" fill="%s"/>`, c.w, c.h, fill)
}

// FillRect draws a filled rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, fill string) {
	fmt.Fprintf(&c.sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`, x, y, w, h, fill)
}

// StrokeRect draws a rectangle outline.
func (c *Canvas) StrokeRect(x, y, w, h float64, stroke string, width float64) {
	fmt.Fprintf(&c.sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s" stroke-width="%.1f"/>`,
		x, y, w, h, stroke, width)
}

// Line draws a line segment.
func (c *Canvas) Line(x1, y1, x2, y2 float64, stroke string, width float64) {
	fmt.Fprintf(&c.sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f"/>`,
		x1, y1, x2, y2, stroke, width)
}

// Circle draws a filled circle.
func (c *Canvas) Circle(cx, cy, r float64, fill string) {
	fmt.Fprintf(&c.sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`, cx, cy, r, fill)
}

// Polyline draws an open stroked path through the given (x, y) pairs.
func (c *Canvas) Polyline(points [][2]float64, stroke string, width float64) {
	if len(points) == 0 {
		return
	}
	path := strings.Builder{}
	for i, p := range points {
		if i == 0 {
			fmt.Fprintf(&path, "M%.1f,%.1f", p[0], p[1])
		} else {
			fmt.Fprintf(&path, " L%.1f,%.1f", p[0], p[1])
		}
	}
	fmt.Fprintf(&c.sb, `<path d="%s" stroke="%s" stroke-width="%.1f" fill="none"/>`, path.String(), stroke, width)
}

// FillPolygon draws a closed filled path through the given (x, y) pairs.
func (c *Canvas) FillPolygon(points [][2]float64, fill string) {
	if len(points) == 0 {
		return
	}
	path := strings.Builder{}
	for i, p := range points {
		if i == 0 {
			fmt.Fprintf(&path, "M%.1f,%.1f", p[0], p[1])
		} else {
			fmt.Fprintf(&path, " L%.1f,%.1f", p[0], p[1])
		}
	}
	fmt.Fprintf(&c.sb, `<path d="%s Z" fill="%s"/>`, path.String(), fill)
}

// Text draws a text label in the simulation's monospace overlay style.
func (c *Canvas) Text(x, y float64, text, fill string, size int) {
	fmt.Fprintf(&c.sb, `<text x="%.1f" y="%.1f" font-family="monospace" font-size="%d" fill="%s">%s</text>`,
		x, y, size, fill, html.EscapeString(text))
}

// SVG emits the recorded frame as a complete SVG document.
func (c *Canvas) SVG() string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">%s</svg>`,
		c.w, c.h, c.w, c.h, c.sb.String())
}
