// Package session owns the live state of one open report view: the editable
// table, the calculator, the analysis rendering, the chart and the
// simulation. Exactly one view is active per session; every component
// reaches the state through the session rather than through ambient
// globals, and Close tears everything down (the animation clock first).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/analysis"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/calc"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/chart"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/sim"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/table"
)

// ChartSize matches the analysis graph viewport of the report document.
const (
	ChartWidth  = 400
	ChartHeight = 300
)

// Session is the single owner of one open report's runtime state.
type Session struct {
	model  *report.Model
	tab    *table.Table
	engine calc.Engine
	graph  *chart.Renderer // nil when the report has no chart
	state  *sim.State
	clock  *sim.Clock
	canvas *sim.Canvas

	mu           sync.Mutex
	lastAnalysis string
	lastFrame    string
	onFrame      func(svg string)
	closeOnce    sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithEngine overrides the calculation engine (tests).
func WithEngine(e calc.Engine) Option {
	return func(s *Session) { s.engine = e }
}

// WithFrameInterval overrides the animation cadence (tests).
func WithFrameInterval(d time.Duration) Option {
	return func(s *Session) {
		s.clock = sim.NewClock(d, s.frameTick)
	}
}

// New builds a session for a validated model. The simulation starts paused
// at frame zero with default parameters; the analysis and chart are
// computed from the initial table.
func New(m *report.Model, opts ...Option) *Session {
	s := &Session{
		model:  m,
		tab:    table.New(m.TableHeaders, m.TableData),
		engine: calc.ForScript(m.CalculationScript),
		graph:  chart.NewRenderer(m.GraphConfig, ChartWidth, ChartHeight),
		state:  sim.NewState(sim.ForType(m.SimulationType)),
		canvas: sim.NewCanvas(),
	}
	s.clock = sim.NewClock(sim.DefaultFrameInterval, s.frameTick)
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	if s.graph != nil {
		s.graph.Update(s.tab.Rows())
	}
	s.recomputeAnalysisLocked()
	s.redrawLocked()
	s.mu.Unlock()
	return s
}

// Start launches the animation clock (still paused) and returns the session
// for chaining.
func (s *Session) Start(ctx context.Context) *Session {
	s.clock.Start(ctx)
	return s
}

// SetFrameListener registers the sink for simulation frames pushed by the
// clock. Must be set before the simulation is toggled on.
func (s *Session) SetFrameListener(fn func(svg string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = fn
}

// Model returns the underlying validated report.
func (s *Session) Model() *report.Model { return s.model }

// Table returns the session's table store.
func (s *Session) Table() *table.Table { return s.tab }

// SimParams returns the control definitions for this report's simulation.
func (s *Session) SimParams() []sim.Param { return s.state.Simulator().Params() }

// frameTick runs on the clock goroutine: advance, redraw, push.
func (s *Session) frameTick() {
	s.mu.Lock()
	s.state.Frame++
	s.redrawLocked()
	frame := s.lastFrame
	fn := s.onFrame
	s.mu.Unlock()
	if fn != nil {
		fn(frame)
	}
}

func (s *Session) redrawLocked() {
	s.state.DrawFrame(s.canvas)
	s.lastFrame = s.canvas.SVG()
}

// ToggleSimulation flips Paused<->Running and returns the new state along
// with a fresh frame so the view stays responsive on state entry.
func (s *Session) ToggleSimulation() (active bool, frame string) {
	// The flag must be set before the clock can deliver the next tick, or
	// that tick would render with the stale active state.
	s.mu.Lock()
	defer s.mu.Unlock()
	active = s.clock.Toggle()
	s.state.Active = active
	s.redrawLocked()
	return active, s.lastFrame
}

// SetSimParam updates one control value and returns one redrawn frame. The
// frame counter and running state are untouched.
func (s *Session) SetSimParam(id string, value float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.SetParam(id, value); err != nil {
		return "", err
	}
	s.redrawLocked()
	return s.lastFrame, nil
}

// Frame returns the most recently rendered simulation frame.
func (s *Session) Frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// EditCell writes one table cell. On success the analysis and chart are
// recomputed synchronously; on InvalidCellInput nothing re-renders and the
// error is returned for the view to flag locally.
func (s *Session) EditCell(row, col int, rawText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tab.SetCell(row, col, rawText); err != nil {
		return err
	}
	s.reactLocked()
	return nil
}

// AppendRow adds a zero row and recomputes dependents.
func (s *Session) AppendRow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab.AppendRow()
	s.reactLocked()
}

// reactLocked is the reactive loop: table -> calculator -> template, and
// table -> chart, all synchronous.
func (s *Session) reactLocked() {
	s.recomputeAnalysisLocked()
	if s.graph != nil {
		s.graph.Update(s.tab.Rows())
	}
}

func (s *Session) recomputeAnalysisLocked() {
	results, err := s.engine.Evaluate(context.Background(), s.model.CalculationScript, s.tab.Rows())
	if err != nil {
		// Degrade only the analysis section; swap in the fallback
		// atomically rather than showing partial output.
		logging.Render("calculation failed for report %q: %v", s.model.Title, err)
		s.lastAnalysis = `<span class="calc-error">` + analysis.Fallback + `</span>`
		return
	}
	s.lastAnalysis = analysis.RenderHTML(s.model.AnalysisTemplate, results)
}

// Analysis returns the current analysis HTML fragment (or the fallback).
func (s *Session) Analysis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnalysis
}

// ChartSVG returns the current chart rendering; ok is false when the report
// has no graph.
func (s *Session) ChartSVG() (svg string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return "", false
	}
	return s.graph.SVG(), true
}

// Close tears the view down: the clock stops scheduling frames and the
// frame listener is released. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.clock.Stop()
		s.mu.Lock()
		s.onFrame = nil
		s.mu.Unlock()
	})
}
