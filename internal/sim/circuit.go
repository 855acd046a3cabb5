package sim

import (
	"fmt"
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// circuitSim animates a series circuit. A charge marker advances along the
// rectangular loop at a speed proportional to I = V/R; below the visibility
// threshold the marker is hidden so an open circuit never implies flow.
type circuitSim struct{}

func (circuitSim) Type() string { return report.SimCircuit }

// markerSpeedThreshold hides the charge marker when current is effectively
// zero (speed = current*20, so this is I < 5 mA).
const markerSpeedThreshold = 0.1

func (circuitSim) Params() []Param {
	return []Param{
		{ID: "voltage", Label: "Voltage (V)", Min: 0, Max: 24, Initial: 12, Unit: "V"},
		{ID: "resistance", Label: "Resistance (R)", Min: 10, Max: 500, Initial: 100, Unit: "Ω"},
	}
}

// CircuitCurrent is Ohm's law.
func CircuitCurrent(voltage, resistance float64) float64 {
	return voltage / resistance
}

// CircuitMarkerPosition places the charge marker on the loop perimeter for
// a frame, or ok=false when current is below the visibility threshold.
func CircuitMarkerPosition(frame int, voltage, resistance float64) (x, y float64, ok bool) {
	speed := CircuitCurrent(voltage, resistance) * 20
	if speed <= markerSpeedThreshold {
		return 0, 0, false
	}
	const pathLen = 900 // loop perimeter: 2*(300+150)
	pos := math.Mod(float64(frame)*speed, pathLen)
	switch {
	case pos < 300:
		return 250 + pos, 100, true
	case pos < 450:
		return 550, 100 + (pos - 300), true
	case pos < 750:
		return 550 - (pos - 450), 250, true
	default:
		return 250, 250 - (pos - 750), true
	}
}

func (circuitSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	voltage := params["voltage"]
	resistance := params["resistance"]
	current := CircuitCurrent(voltage, resistance)

	c.StrokeRect(250, 100, 300, 150, "#facc15", 4) // wire loop

	// Battery terminals
	c.FillRect(230, 160, 10, 30, "#ef4444")
	c.FillRect(260, 150, 10, 50, "#22c55e")

	// Resistor
	c.FillRect(540, 160, 20, 30, "#94a3b8")

	if active {
		if x, y, ok := CircuitMarkerPosition(frame, voltage, resistance); ok {
			c.Circle(x, y, 6, "#38bdf8")
		}
	}

	c.Text(10, 290, fmt.Sprintf("I = %.3f A", current), "#fff", 12)
}
