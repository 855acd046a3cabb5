package sim

import (
	"math"
	"strings"
	"testing"
)

func TestForTypeSelection(t *testing.T) {
	cases := map[string]string{
		"pendulum": "pendulum",
		"heating":  "heating",
		"spring":   "spring",
		"circuit":  "circuit",
		"wave":     "wave",
		"general":  "general",
		"optics":   "general", // unrecognized falls back
		"":         "general",
	}
	for tag, want := range cases {
		if got := ForType(tag).Type(); got != want {
			t.Errorf("ForType(%q).Type() = %q, want %q", tag, got, want)
		}
	}
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState(ForType("pendulum"))
	if s.Active || s.Frame != 0 {
		t.Errorf("new state must start paused at frame 0: %+v", s)
	}
	if s.Params["length"] != 200 || s.Params["gravity"] != 9.8 {
		t.Errorf("defaults not applied: %v", s.Params)
	}
}

func TestSetParamContract(t *testing.T) {
	s := NewState(ForType("pendulum"))
	s.Frame = 42
	s.Active = true
	if err := s.SetParam("length", 120); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if s.Params["length"] != 120 {
		t.Errorf("length = %v", s.Params["length"])
	}
	if s.Params["gravity"] != 9.8 {
		t.Error("other params must be untouched")
	}
	if s.Frame != 42 || !s.Active {
		t.Error("SetParam must not reset frame or toggle active")
	}
}

func TestSetParamClampsToRange(t *testing.T) {
	s := NewState(ForType("pendulum"))
	_ = s.SetParam("gravity", 999)
	if s.Params["gravity"] != 20 {
		t.Errorf("gravity = %v, want clamped to 20", s.Params["gravity"])
	}
	_ = s.SetParam("gravity", -3)
	if s.Params["gravity"] != 1 {
		t.Errorf("gravity = %v, want clamped to 1", s.Params["gravity"])
	}
}

func TestSetParamUnknownID(t *testing.T) {
	s := NewState(ForType("wave"))
	if err := s.SetParam("gravity", 9.8); err == nil {
		t.Error("unknown param id must be rejected")
	}
}

func TestPendulumAngleAtRest(t *testing.T) {
	if angle := PendulumAngle(0, 200, 9.8); angle != 0 {
		t.Errorf("frame 0 angle = %v, want 0 (bob straight down)", angle)
	}
}

func TestPendulumAngleMonotoneWithinQuarterPeriod(t *testing.T) {
	length, gravity := 200.0, 9.8
	speedFactor := math.Sqrt(gravity) / math.Sqrt(length) * 2
	quarter := int((math.Pi / 2) / (0.05 * speedFactor))

	prev := PendulumAngle(0, length, gravity)
	for f := 1; f <= quarter; f++ {
		cur := PendulumAngle(f, length, gravity)
		if cur <= prev {
			t.Fatalf("angle not increasing at frame %d: %v <= %v", f, cur, prev)
		}
		prev = cur
	}
	// Past the quarter period the swing reverses.
	if after := PendulumAngle(quarter+quarter/2, length, gravity); after >= prev {
		t.Errorf("angle did not reverse after quarter period: %v >= %v", after, prev)
	}
}

func TestPendulumAmplitudeBound(t *testing.T) {
	for f := 0; f < 500; f++ {
		if a := math.Abs(PendulumAngle(f, 50, 20)); a > 0.5 {
			t.Fatalf("angle %v exceeds 0.5 rad amplitude at frame %d", a, f)
		}
	}
}

func TestHeatingTemperature(t *testing.T) {
	if got := HeatingTemperature(0, 50, 25); got != 25 {
		t.Errorf("initial temp = %v, want ambient 25", got)
	}
	// Monotone non-decreasing in frame, capped at 100.
	prev := -1.0
	for f := 0; f < 5000; f += 50 {
		cur := HeatingTemperature(f, 80, 25)
		if cur < prev {
			t.Fatalf("temperature decreased at frame %d: %v < %v", f, cur, prev)
		}
		prev = cur
	}
	if prev != 100 {
		t.Errorf("long-run temperature = %v, want capped at 100", prev)
	}
}

func TestSpringModel(t *testing.T) {
	if ext := SpringExtension(50, 5); ext != 98 {
		t.Errorf("extension = %v, want 98 (mg/k)", ext)
	}
	if off := SpringOffset(0, 50, 5); off != 0 {
		t.Errorf("offset at frame 0 = %v, want 0", off)
	}
	// Oscillation bounded by +-20.
	for f := 0; f < 300; f++ {
		if o := math.Abs(SpringOffset(f, 50, 5)); o > 20 {
			t.Fatalf("offset %v exceeds 20 at frame %d", o, f)
		}
	}
}

func TestCircuitCurrentAndMarker(t *testing.T) {
	if i := CircuitCurrent(12, 100); math.Abs(i-0.12) > 1e-12 {
		t.Errorf("current = %v, want 0.12", i)
	}
	if _, _, ok := CircuitMarkerPosition(10, 12, 100); !ok {
		t.Error("marker should be visible with healthy current")
	}
	// Effectively zero current: no marker, no implied flow.
	if _, _, ok := CircuitMarkerPosition(10, 0, 100); ok {
		t.Error("marker must be hidden when current is ~0")
	}
	if _, _, ok := CircuitMarkerPosition(10, 0.4, 100); ok {
		t.Error("marker must be hidden below the visibility threshold")
	}
}

func TestCircuitMarkerStaysOnLoop(t *testing.T) {
	for f := 0; f < 2000; f += 7 {
		x, y, ok := CircuitMarkerPosition(f, 24, 10)
		if !ok {
			t.Fatalf("marker unexpectedly hidden at frame %d", f)
		}
		onLoop := (y == 100 || y == 250) && x >= 250 && x <= 550 ||
			(x == 250 || x == 550) && y >= 100 && y <= 250
		if !onLoop {
			t.Fatalf("marker off loop at frame %d: (%v, %v)", f, x, y)
		}
	}
}

func TestWaveModel(t *testing.T) {
	// Baseline at phase zero.
	if y := WaveY(0, 0, 5, 50); y != 150 {
		t.Errorf("WaveY(0,0) = %v, want baseline 150", y)
	}
	for f := 0; f < 100; f++ {
		for x := 0.0; x < CanvasWidth; x += 40 {
			y := WaveY(f, x, 20, 100)
			if y < 50 || y > 250 {
				t.Fatalf("wave out of amplitude bounds: y=%v at f=%d x=%v", y, f, x)
			}
		}
	}
}

func TestDrawFrameAllTypes(t *testing.T) {
	for _, tag := range []string{"pendulum", "heating", "spring", "circuit", "wave", "general"} {
		s := NewState(ForType(tag))
		s.Active = true
		s.Frame = 17
		c := NewCanvas()
		s.DrawFrame(c)
		svg := c.SVG()
		if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
			t.Errorf("%s: incomplete frame", tag)
		}
		if strings.Contains(svg, "NaN") {
			t.Errorf("%s: NaN leaked into frame", tag)
		}
	}
}

func TestDrawIsPure(t *testing.T) {
	s := NewState(ForType("pendulum"))
	s.Frame = 30
	c1, c2 := NewCanvas(), NewCanvas()
	s.DrawFrame(c1)
	s.DrawFrame(c2)
	if c1.SVG() != c2.SVG() {
		t.Error("same (frame, params, active) must render identical frames")
	}
}
