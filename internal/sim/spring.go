package sim

import (
	"fmt"
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// springSim animates a loaded spring. Static extension follows Hooke's law
// (x = mg/k); the oscillation term sin(0.05*f*omega)*20 with
// omega = sqrt(k/(m/100)) is added only while running.
type springSim struct{}

func (springSim) Type() string { return report.SimSpring }

func (springSim) Params() []Param {
	return []Param{
		{ID: "mass", Label: "Mass Load", Min: 10, Max: 100, Initial: 50, Unit: "g"},
		{ID: "k", Label: "Spring Constant", Min: 1, Max: 10, Initial: 5, Unit: "N/m"},
	}
}

// SpringExtension is the static extension for a mass load.
func SpringExtension(mass, k float64) float64 {
	return (mass * 9.8) / k
}

// SpringOffset is the oscillation displacement at a frame.
func SpringOffset(frame int, mass, k float64) float64 {
	omega := math.Sqrt(k / (mass / 100))
	return math.Sin(float64(frame)*0.05*omega) * 20
}

func (springSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	mass := params["mass"]
	k := params["k"]

	extension := SpringExtension(mass, k)
	yBase := 50 + extension*2
	y := yBase
	if active {
		y += SpringOffset(frame, mass, k)
	}

	// Coiled spring down to the load
	const coils = 10
	coilSpacing := y / coils
	points := make([][2]float64, 0, coils+2)
	points = append(points, [2]float64{400, 0})
	for i := 0; i <= coils; i++ {
		cx := 400.0 - 10
		if i%2 == 0 {
			cx = 400.0 + 10
		}
		points = append(points, [2]float64{cx, float64(i) * coilSpacing})
	}
	c.Polyline(points, "#cbd5e1", 4)

	size := 20 + mass/5
	c.FillRect(400-size/2, y, size, size, "#f472b6")
	c.Text(10, 290, fmt.Sprintf("Ext: %.1fmm", extension), "#fff", 12)
}
