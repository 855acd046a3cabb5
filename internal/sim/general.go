package sim

import (
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// generalSim is the fallback for experiments without a modeled apparatus:
// decorative drifting particles with a single speed control, carrying no
// physical meaning.
type generalSim struct{}

func (generalSim) Type() string { return report.SimGeneral }

func (generalSim) Params() []Param {
	return []Param{
		{ID: "speed", Label: "Sim Speed", Min: 0, Max: 5, Initial: 1, Unit: "x"},
	}
}

func (generalSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	speed := params["speed"]

	c.Text(280, 150, "Standard Laboratory Environment", "#fff", 20)

	for i := 0; i < 10; i++ {
		x := math.Mod(float64(frame)*speed*float64(i+1), CanvasWidth)
		y := math.Sin(float64(frame)*0.01*speed+float64(i))*100 + 150
		c.Circle(x, y, float64(2+i%3), "rgba(255,255,255,0.2)")
	}
}
