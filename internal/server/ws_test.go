package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialLive(t *testing.T, f *fixture, cookie *http.Cookie, reportID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/reports/" + reportID + "/live"
	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) serverEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev serverEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

// readEventOfType skips interleaved frames until the wanted type arrives.
func readEventOfType(t *testing.T, conn *websocket.Conn, typ string) serverEvent {
	t.Helper()
	for i := 0; i < 50; i++ {
		ev := readEvent(t, conn)
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("no %q event received", typ)
	return serverEvent{}
}

func generateReport(t *testing.T, f *fixture, cookie *http.Cookie) string {
	t.Helper()
	resp := f.authedReq(t, "POST", "/api/generate-report", cookie, map[string]string{"experimentCode": "PHY110"})
	defer resp.Body.Close()
	var generated struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&generated)
	if generated.ID == "" {
		t.Fatal("no report id")
	}
	return generated.ID
}

func TestLiveViewSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")
	id := generateReport(t, f, cookie)

	conn := dialLive(t, f, cookie, id)

	init := readEvent(t, conn)
	if init.Type != "init" {
		t.Fatalf("first event %q, want init", init.Type)
	}
	if init.SVG == "" || init.HTML == "" || len(init.Rows) != 2 || len(init.Headers) != 2 {
		t.Errorf("init incomplete: svg=%d html=%d rows=%d", len(init.SVG), len(init.HTML), len(init.Rows))
	}
	if !strings.Contains(init.HTML, "4.0000") {
		t.Errorf("initial analysis = %q", init.HTML)
	}

	chart := readEvent(t, conn)
	if chart.Type != "chart" || !strings.Contains(chart.SVG, "<svg") {
		t.Fatalf("second event %+v, want chart", chart.Type)
	}

	// Editing a cell recomputes analysis and chart.
	conn.WriteJSON(clientEvent{Type: "cell", Row: 0, Col: 1, Text: "3.0"})
	analysis := readEventOfType(t, conn, "analysis")
	if analysis.HTML == init.HTML {
		t.Error("analysis did not change after the cell edit")
	}
	readEventOfType(t, conn, "chart")

	// Rejected input flags the offending cell and changes nothing.
	conn.WriteJSON(clientEvent{Type: "cell", Row: 0, Col: 1, Text: "not a number"})
	errEv := readEventOfType(t, conn, "error")
	if errEv.Row != 0 || errEv.Col != 1 {
		t.Errorf("error event cell = (%d,%d)", errEv.Row, errEv.Col)
	}

	// Adding a row pushes the grown table.
	conn.WriteJSON(clientEvent{Type: "addRow"})
	tableEv := readEventOfType(t, conn, "table")
	if len(tableEv.Rows) != 3 {
		t.Errorf("rows after addRow = %d", len(tableEv.Rows))
	}

	// Toggling the simulation starts the frame stream.
	conn.WriteJSON(clientEvent{Type: "toggle"})
	frame := readEventOfType(t, conn, "frame")
	if !frame.Active || !strings.Contains(frame.SVG, "<svg") {
		t.Errorf("toggle frame active=%v svg=%d bytes", frame.Active, len(frame.SVG))
	}
	// At least one clock-driven frame follows.
	readEventOfType(t, conn, "frame")

	conn.Close()
}

func TestLiveViewUnknownReport(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/api/reports/nope/live"
	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("dial should fail for an unknown report")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %+v", resp)
	}
}

func TestLiveViewClosedOnServerClose(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")
	id := generateReport(t, f, cookie)

	conn := dialLive(t, f, cookie, id)
	readEvent(t, conn) // init

	f.srv.Close()
	f.srv.mu.Lock()
	open := len(f.srv.views)
	f.srv.mu.Unlock()
	if open != 0 {
		t.Errorf("%d views still registered after Close", open)
	}
}
