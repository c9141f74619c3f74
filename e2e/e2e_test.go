// Package e2e tests the assembled board server: engine, websocket gateway
// and REST router wired together the way cmd/ardoise wires them.
//
// These tests cross surfaces on purpose. Per-surface behavior lives in the
// wsgate and rest package tests; what is verified here is that a REST
// mutation repaints live websocket clients, that gauges reflect both
// surfaces, and that a canvas survives a full server restart.
package e2e

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ardoise/board"
	"github.com/hazyhaar/ardoise/dbopen"
	"github.com/hazyhaar/ardoise/observability"
	"github.com/hazyhaar/ardoise/rest"
	"github.com/hazyhaar/ardoise/wsgate"
)

// frame is the wire envelope. Deliberately redeclared here: e2e speaks the
// protocol as a client would, not through the server's own types.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// stack is one fully wired board server on an ephemeral port.
type stack struct {
	svc *board.Service
	srv *httptest.Server
}

// newStack assembles engine, gateway and router on dataFile. Both closers
// are idempotent, so tests may stop a stack early to simulate a restart.
func newStack(t *testing.T, dataFile string, settle time.Duration) *stack {
	t.Helper()

	svc, err := board.New(board.Config{
		MaxLogSize:   100,
		SettleDelay:  settle,
		SaveInterval: time.Hour,
		Backend:      board.BackendFile,
		DataFile:     dataFile,
	}, nil)
	if err != nil {
		t.Fatalf("board.New: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("board.Start: %v", err)
	}

	db := dbopen.OpenMemory(t, dbopen.WithSchema(observability.Schema))
	journal := observability.NewJournal(db, 64)
	t.Cleanup(func() { journal.Close() })

	router := rest.NewRouter(svc, wsgate.New(svc), journal, time.Now())
	st := &stack{svc: svc, srv: httptest.NewServer(router)}
	t.Cleanup(st.close)
	return st
}

func (s *stack) close() {
	s.srv.Close()
	s.svc.Close()
}

func dialWS(t *testing.T, s *stack) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	env := frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s payload: %v", event, err)
		}
		env.Data = raw
	}
	buf, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal %s envelope: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func recvEvent(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, buf, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env frame
	if err := json.Unmarshal(buf, &env); err != nil {
		t.Fatalf("unmarshal frame %q: %v", buf, err)
	}
	return env
}

func recvCanvas(t *testing.T, conn *websocket.Conn) []board.Stroke {
	t.Helper()
	env := recvEvent(t, conn)
	if env.Event != board.EventCanvasData {
		t.Fatalf("received %q, want canvas-data", env.Event)
	}
	var canvas []board.Stroke
	if err := json.Unmarshal(env.Data, &canvas); err != nil {
		t.Fatalf("unmarshal canvas: %v", err)
	}
	return canvas
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func drawPayload(x float64) map[string]any {
	return map[string]any{
		"x0": x, "y0": 1.0, "x1": x + 1, "y1": 2.0,
		"color": "#204060", "size": 2.0, "tool": "pen",
	}
}
