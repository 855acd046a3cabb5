// Package chart projects two table columns into an (x, y) series and renders
// it as an SVG line chart for server-driven views. One Renderer is created
// per open report and updated in place on table edits, so view state carried
// by the chart identity (the client keeps the same <svg> node) survives
// recomputation.
package chart

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// Point is one projected table row.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points projects rows through cfg. A nil cfg means the report has no chart
// and yields nil. Index validity is the validator's job, not handled here.
func Points(cfg *report.GraphConfig, rows [][]float64) []Point {
	if cfg == nil {
		return nil
	}
	pts := make([]Point, len(rows))
	for i, row := range rows {
		pts[i] = Point{X: row[cfg.XColumnIndex], Y: row[cfg.YColumnIndex]}
	}
	return pts
}

// Renderer draws one report's analysis graph. Dimensions are fixed at
// construction; Update re-projects the series against fresh rows.
type Renderer struct {
	cfg           *report.GraphConfig
	width, height float64
	points        []Point
}

// NewRenderer builds a renderer for cfg, or nil when cfg is nil.
func NewRenderer(cfg *report.GraphConfig, width, height float64) *Renderer {
	if cfg == nil {
		return nil
	}
	return &Renderer{cfg: cfg, width: width, height: height}
}

// Update recomputes the point series from the current rows.
func (r *Renderer) Update(rows [][]float64) {
	r.points = Points(r.cfg, rows)
}

// Series returns the last projected points.
func (r *Renderer) Series() []Point { return r.points }

// SVG renders the current series. Layout follows a fixed margin box with
// axes, ticks and a faint grid; the series is drawn as a polyline with
// point markers.
func (r *Renderer) SVG() string {
	margin := struct{ top, right, bottom, left float64 }{40, 30, 50, 60}
	pw := r.width - margin.left - margin.right
	ph := r.height - margin.top - margin.bottom

	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, p := range r.points {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	if math.IsInf(xmin, 1) {
		xmin, xmax = 0, 1
	}
	if math.IsInf(ymin, 1) {
		ymin, ymax = 0, 1
	}
	xrange := xmax - xmin
	if xrange == 0 {
		xrange = 1
	}
	yrange := ymax - ymin
	if yrange == 0 {
		yrange = 1
	}
	xmin -= xrange * 0.05
	xmax += xrange * 0.05
	ymin -= yrange * 0.1
	ymax += yrange * 0.1

	sx := func(x float64) float64 { return margin.left + (x-xmin)/(xmax-xmin)*pw }
	sy := func(y float64) float64 { return margin.top + ph - (y-ymin)/(ymax-ymin)*ph }

	sb := strings.Builder{}
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, int(r.width), int(r.height))
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#0f172a" rx="8"/>`, int(r.width), int(r.height))

	if r.cfg.Title != "" {
		fmt.Fprintf(&sb, `<text x="%g" y="25" text-anchor="middle" font-family="Inter, sans-serif" font-size="14" fill="#f8fafc" font-weight="bold">%s</text>`,
			r.width/2, html.EscapeString(r.cfg.Title))
	}

	// Axes
	fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#94a3b8" stroke-width="2"/>`,
		margin.left, margin.top, margin.left, margin.top+ph)
	fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#94a3b8" stroke-width="2"/>`,
		margin.left, margin.top+ph, margin.left+pw, margin.top+ph)

	// Axis labels
	fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="middle" font-family="Inter, sans-serif" font-size="11" fill="#94a3b8">%s</text>`,
		margin.left+pw/2, r.height-10, html.EscapeString(r.cfg.XLabel))
	fmt.Fprintf(&sb, `<text x="15" y="%g" text-anchor="middle" font-family="Inter, sans-serif" font-size="11" fill="#94a3b8" transform="rotate(-90, 15, %g)">%s</text>`,
		margin.top+ph/2, margin.top+ph/2, html.EscapeString(r.cfg.YLabel))

	// Ticks and grid
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		x := xmin + (xmax-xmin)*float64(i)/ticks
		px := sx(x)
		fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#334155" stroke-width="0.5"/>`,
			px, margin.top, px, margin.top+ph)
		fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="middle" font-family="Inter, sans-serif" font-size="9" fill="#cbd5e1">%.1f</text>`,
			px, margin.top+ph+16, x)

		y := ymin + (ymax-ymin)*float64(i)/ticks
		py := sy(y)
		fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#334155" stroke-width="0.5"/>`,
			margin.left, py, margin.left+pw, py)
		fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="end" font-family="Inter, sans-serif" font-size="9" fill="#cbd5e1">%.1f</text>`,
			margin.left-8, py+3, y)
	}

	// Series
	if len(r.points) > 0 {
		path := strings.Builder{}
		for i, p := range r.points {
			if i == 0 {
				fmt.Fprintf(&path, "M%g,%g", sx(p.X), sy(p.Y))
			} else {
				fmt.Fprintf(&path, " L%g,%g", sx(p.X), sy(p.Y))
			}
		}
		fmt.Fprintf(&sb, `<path d="%s" stroke="#f472b6" stroke-width="2" fill="none"/>`, path.String())
		for _, p := range r.points {
			fmt.Fprintf(&sb, `<circle cx="%g" cy="%g" r="3" fill="#f472b6"/>`, sx(p.X), sy(p.Y))
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}
