package sim

import (
	"fmt"
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// pendulumSim animates a simple pendulum. The swing rate follows
// T = 2*pi*sqrt(L/g): angular speed scales with sqrt(g)/sqrt(L).
type pendulumSim struct{}

func (pendulumSim) Type() string { return report.SimPendulum }

func (pendulumSim) Params() []Param {
	return []Param{
		{ID: "length", Label: "Length (L)", Min: 50, Max: 280, Initial: 200, Unit: "cm"},
		{ID: "gravity", Label: "Gravity (g)", Min: 1, Max: 20, Initial: 9.8, Unit: "m/s²"},
	}
}

// PendulumAngle is the bob angle in radians at a given frame.
func PendulumAngle(frame int, length, gravity float64) float64 {
	speedFactor := math.Sqrt(gravity) / math.Sqrt(length) * 2
	return math.Sin(float64(frame)*0.05*speedFactor) * 0.5
}

func (pendulumSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	const cx, cy = 400.0, 0.0
	length := params["length"]
	gravity := params["gravity"]

	angle := PendulumAngle(frame, length, gravity)
	x := cx + math.Sin(angle)*length
	y := cy + math.Cos(angle)*length

	c.Line(cx, cy, x, y, "#94a3b8", 2) // string
	c.Circle(x, y, 15, "#38bdf8")      // bob
	c.Text(10, 290, fmt.Sprintf("L: %gcm, g: %gm/s²", length, gravity), "#fff", 12)
}
