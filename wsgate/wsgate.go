// CLAUDE:SUMMARY WebSocket gateway: upgrades connections, decodes {event,data} envelopes and dispatches them onto the board engine.
// Package wsgate is the event channel between browsers and the board
// engine. Each connection gets a session ID, a read loop dispatching client
// events, and a write pump delivering engine broadcasts.
//
// Malformed envelopes get an "error" event back; payloads that parse but
// fail validation are dropped silently, matching the engine's contract that
// drawing clients never receive feedback on their own strokes.
package wsgate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/ardoise/board"
	"github.com/hazyhaar/ardoise/idgen"
	"github.com/hazyhaar/ardoise/kit"
)

// Inbound event names.
const (
	evDraw        = "draw"
	evErase       = "erase"
	evClear       = "clear"
	evUndo        = "undo"
	evRequestSync = "request-sync"
	evDailyReset  = "daily-reset"
)

// eventError is the one outbound event the gateway originates itself, for
// frames it cannot parse at all.
const eventError = "error"

// envelope is the wire frame, both directions: {"event": ..., "data": ...}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(ev board.Event) ([]byte, error) {
	env := envelope{Event: ev.Name}
	if ev.Data != nil {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Gateway upgrades HTTP requests to WebSocket sessions on the board.
type Gateway struct {
	svc      *board.Service
	logger   *slog.Logger
	newID    idgen.Generator
	sendBuf  int
	upgrader websocket.Upgrader
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithIDGenerator overrides session ID generation. Use in tests.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(g *Gateway) {
		if gen != nil {
			g.newID = gen
		}
	}
}

// WithSendBuffer sets the per-session outbound buffer, in events.
func WithSendBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuf = n
		}
	}
}

// New creates a Gateway dispatching onto svc.
func New(svc *board.Service, opts ...Option) *Gateway {
	g := &Gateway{
		svc:     svc,
		logger:  slog.Default(),
		newID:   idgen.Session,
		sendBuf: 256,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The board is a LAN tool: pages reach it from other hosts' copies
		// of the client, so origin enforcement would only break legitimate
		// use. There is no credentialed state to protect.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return g
}

// ServeHTTP upgrades the request and runs the session until the connection
// drops.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := g.newID()
	sess := newSession(id, conn, g.sendBuf, g.logger)
	logger := g.logger.With("session_id", id, "remote", r.RemoteAddr)

	ctx := kit.WithSessionID(r.Context(), id)
	ctx = kit.WithTransport(ctx, "ws")
	ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)

	if err := g.svc.AttachSession(ctx, sess); err != nil {
		logger.Warn("session attach failed", "error", err)
		conn.Close()
		return
	}
	logger.Info("session connected")

	go sess.writePump()
	g.readLoop(ctx, sess, logger)

	// The request context is dying with the connection; detach on a fresh
	// one so the unregister always lands.
	if err := g.svc.DetachSession(context.Background(), id); err != nil {
		logger.Debug("session detach failed", "error", err)
	}
	sess.close()
	logger.Info("session disconnected")
}

func (g *Gateway) readLoop(ctx context.Context, sess *session, logger *slog.Logger) {
	conn := sess.conn
	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
			logger.Debug("malformed envelope", "error", err)
			sess.Send(board.Event{
				Name: eventError,
				Data: map[string]string{"message": "invalid message format"},
			})
			continue
		}
		g.dispatch(ctx, sess, env, logger)
	}
}

func (g *Gateway) dispatch(ctx context.Context, sess *session, env envelope, logger *slog.Logger) {
	switch env.Event {
	case evDraw, evErase:
		kind := board.KindDraw
		if env.Event == evErase {
			kind = board.KindErase
		}
		in, err := board.DecodeStrokeInput(kind, env.Data)
		if err != nil {
			logger.Debug("stroke dropped", "error", err)
			return
		}
		if _, err := g.svc.SubmitStroke(ctx, sess.id, in); err != nil {
			logger.Debug("stroke rejected", "error", err)
		}

	case evClear:
		if err := g.svc.Clear(ctx, sess.id); err != nil {
			logger.Debug("clear failed", "error", err)
		}

	case evUndo:
		var p struct {
			TargetLength *int `json:"targetLength"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.TargetLength == nil {
			logger.Debug("undo payload dropped")
			return
		}
		if _, err := g.svc.Undo(ctx, sess.id, *p.TargetLength); err != nil {
			logger.Debug("undo failed", "error", err)
		}

	case evRequestSync:
		if err := g.svc.RequestSync(ctx, sess.id); err != nil {
			logger.Debug("sync request failed", "error", err)
		}

	case evDailyReset:
		if _, err := g.svc.DailyReset(ctx, sess.id); err != nil {
			logger.Debug("daily reset failed", "error", err)
		}

	default:
		logger.Debug("unknown event dropped", "event", env.Event)
	}
}
