package sim

import (
	"math"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// waveSim draws a travelling wave y = A*sin(kx - wt) sampled across the
// canvas width.
type waveSim struct{}

func (waveSim) Type() string { return report.SimWave }

func (waveSim) Params() []Param {
	return []Param{
		{ID: "frequency", Label: "Frequency", Min: 1, Max: 20, Initial: 5, Unit: "Hz"},
		{ID: "amplitude", Label: "Amplitude", Min: 10, Max: 100, Initial: 50, Unit: "px"},
	}
}

// WaveY is the displacement at horizontal sample x for a frame.
func WaveY(frame int, x, frequency, amplitude float64) float64 {
	return 150 + math.Sin(x*0.01*frequency+float64(frame)*0.05*frequency)*amplitude
}

func (waveSim) Draw(c *Canvas, frame int, params map[string]float64, active bool) {
	frequency := params["frequency"]
	amplitude := params["amplitude"]

	points := make([][2]float64, 0, CanvasWidth/5)
	for x := 0.0; x < CanvasWidth; x += 5 {
		points = append(points, [2]float64{x, WaveY(frame, x, frequency, amplitude)})
	}
	c.Polyline(points, "#818cf8", 3)
}
