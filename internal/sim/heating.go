package sim

import (
	"fmt"
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// heatingSim animates a beaker over a burner. Bubble count and rise speed
// scale with heat intensity; the displayed temperature is a pure function of
// frame and params, monotonically non-decreasing while running and reset
// only when the report is reopened (fresh frame counter).
type heatingSim struct{}

func (heatingSim) Type() string { return report.SimHeating }

func (heatingSim) Params() []Param {
	return []Param{
		{ID: "heat", Label: "Heat Intensity", Min: 0, Max: 100, Initial: 50, Unit: "%"},
		{ID: "ambient", Label: "Ambient Temp", Min: 0, Max: 40, Initial: 25, Unit: "°C"},
	}
}

// HeatingTemperature is the displayed thermometer reading at a frame,
// capped at boiling.
func HeatingTemperature(frame int, heat, ambient float64) float64 {
	return math.Min(100, ambient+float64(frame)*0.1*(heat/50))
}

func (heatingSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	heat := params["heat"]
	ambient := params["ambient"]

	// Beaker and liquid
	c.FillRect(350, 150, 100, 120, "rgba(255,255,255,0.1)")
	c.StrokeRect(350, 150, 100, 120, "#fff", 1)
	c.FillRect(355, 180, 90, 85, "rgba(6,182,212,0.5)")

	if active {
		bubbleCount := int(heat/10) + 1
		speed := 1 + heat/20
		for i := 0; i < bubbleCount; i++ {
			bx := 360 + math.Mod(float64(frame*(i+1)*10+i*20), 80)
			by := 260 - math.Mod(float64(frame)*speed+float64(i*30), 80)
			c.Circle(bx, by, 2+heat/30, "rgba(255,255,255,0.6)")
		}
	}

	if active && heat > 0 {
		flameHeight := heat / 2
		flicker := math.Abs(math.Sin(float64(frame)*0.7)) * 5
		c.FillPolygon([][2]float64{
			{380, 300},
			{400, 300 - flameHeight - flicker},
			{420, 300},
		}, "#f59e0b")
	}

	temp := HeatingTemperature(frame, heat, ambient)
	c.Text(10, 290, fmt.Sprintf("Temp: %.1f°C", temp), "#fff", 12)
}
