package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/store"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/table"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 65536, // frames carry full SVG documents
}

// clientEvent is one message from the browser driving the live view.
type clientEvent struct {
	Type  string  `json:"type"` // toggle | param | cell | addRow
	ID    string  `json:"id,omitempty"`
	Value float64 `json:"value,omitempty"`
	Row   int     `json:"row,omitempty"`
	Col   int     `json:"col,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// serverEvent is one update pushed to the browser.
type serverEvent struct {
	Type    string      `json:"type"` // init | frame | analysis | chart | table | error
	Active  bool        `json:"active,omitempty"`
	SVG     string      `json:"svg,omitempty"`
	HTML    string      `json:"html,omitempty"`
	Rows    [][]float64 `json:"rows,omitempty"`
	Headers []string    `json:"headers,omitempty"`
	Params  any         `json:"params,omitempty"`
	Message string      `json:"message,omitempty"`
	Row     int         `json:"row,omitempty"`
	Col     int         `json:"col,omitempty"`
}

// handleLive upgrades to WebSocket and runs one live report view: the
// server owns the session; the browser only sends events and paints what
// it is pushed.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request, u *store.User) {
	m, saved, err := s.loadReport(r, u)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	v := s.openView(u, saved, m)
	defer s.closeView(v)

	// gorilla allows one concurrent writer; frames arrive from the clock
	// goroutine while replies go out from the read loop.
	var writeMu sync.Mutex
	send := func(ev serverEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("live view write failed", zap.String("view", v.id), zap.Error(err))
		}
	}

	v.session.SetFrameListener(func(svg string) {
		send(serverEvent{Type: "frame", Active: true, SVG: svg})
	})

	// Initial state: frame, analysis, chart and table in one burst.
	send(serverEvent{
		Type:    "init",
		SVG:     v.session.Frame(),
		HTML:    v.session.Analysis(),
		Headers: v.session.Table().Headers(),
		Rows:    v.session.Table().Rows(),
		Params:  v.session.SimParams(),
	})
	if chart, ok := v.session.ChartSVG(); ok {
		send(serverEvent{Type: "chart", SVG: chart})
	}

	for {
		var ev clientEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("live view read failed", zap.String("view", v.id), zap.Error(err))
			}
			return
		}
		s.dispatchEvent(v, ev, send)
	}
}

func (s *Server) dispatchEvent(v *liveView, ev clientEvent, send func(serverEvent)) {
	switch ev.Type {
	case "toggle":
		active, frame := v.session.ToggleSimulation()
		send(serverEvent{Type: "frame", Active: active, SVG: frame})

	case "param":
		frame, err := v.session.SetSimParam(ev.ID, ev.Value)
		if err != nil {
			send(serverEvent{Type: "error", Message: err.Error()})
			return
		}
		send(serverEvent{Type: "frame", SVG: frame})

	case "cell":
		if err := v.session.EditCell(ev.Row, ev.Col, ev.Text); err != nil {
			if table.IsInvalidCellInput(err) {
				// Rejected input: the cell keeps its value; tell the
				// browser which cell to flag.
				send(serverEvent{Type: "error", Message: "invalid cell input", Row: ev.Row, Col: ev.Col})
				return
			}
			send(serverEvent{Type: "error", Message: err.Error()})
			return
		}
		s.pushDerived(v, send)

	case "addRow":
		v.session.AppendRow()
		send(serverEvent{Type: "table", Headers: v.session.Table().Headers(), Rows: v.session.Table().Rows()})
		s.pushDerived(v, send)

	default:
		send(serverEvent{Type: "error", Message: "unknown event type"})
	}
}

// pushDerived sends the recomputed analysis and chart after a table change.
func (s *Server) pushDerived(v *liveView, send func(serverEvent)) {
	send(serverEvent{Type: "analysis", HTML: v.session.Analysis()})
	if chart, ok := v.session.ChartSVG(); ok {
		send(serverEvent{Type: "chart", SVG: chart})
	}
}
