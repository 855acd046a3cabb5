package sim

import (
	"fmt"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// Param is one range-bounded control of a simulation type. Param sets are
// fixed per type and are not part of the AI payload.
type Param struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Initial float64 `json:"initial"`
	Unit    string  `json:"unit"`
}

// Simulator is one simulation type: its control set and a pure draw
// function of (frame, params, active).
type Simulator interface {
	Type() string
	Params() []Param
	Draw(c *Canvas, frame int, params map[string]float64, active bool)
}

// ForType selects the simulator for a type tag, once, at report-open time.
// Unrecognized or empty tags resolve to the general fallback.
func ForType(tag string) Simulator {
	switch tag {
	case report.SimPendulum:
		return pendulumSim{}
	case report.SimHeating:
		return heatingSim{}
	case report.SimSpring:
		return springSim{}
	case report.SimCircuit:
		return circuitSim{}
	case report.SimWave:
		return waveSim{}
	default:
		return generalSim{}
	}
}

// State is the runtime state of one open report's simulation: created at
// report open, destroyed at close, never persisted.
type State struct {
	Active bool
	Frame  int
	Params map[string]float64

	sim Simulator
}

// NewState initializes state for a simulator with its default param values.
func NewState(s Simulator) *State {
	params := make(map[string]float64, len(s.Params()))
	for _, p := range s.Params() {
		params[p.ID] = p.Initial
	}
	return &State{Params: params, sim: s}
}

// Simulator returns the simulator the state was created for.
func (s *State) Simulator() Simulator { return s.sim }

// SetParam updates one control value, clamped to the control's range. It
// never touches Frame or Active; the caller triggers the single redraw.
func (s *State) SetParam(id string, value float64) error {
	for _, p := range s.sim.Params() {
		if p.ID != id {
			continue
		}
		if value < p.Min {
			value = p.Min
		}
		if value > p.Max {
			value = p.Max
		}
		s.Params[id] = value
		return nil
	}
	return fmt.Errorf("unknown simulation parameter %q for type %s", id, s.sim.Type())
}

// DrawFrame renders the current state onto c (clearing it first).
func (s *State) DrawFrame(c *Canvas) {
	c.Reset()
	c.Background("#1e293b")
	s.sim.Draw(c, s.Frame, s.Params, s.Active)
}
