// CLAUDE:SUMMARY Per-connection session: buffered outbound queue, single writer goroutine with ping keepalive, drop-on-full delivery.
package wsgate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/ardoise/board"
)

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 50 * time.Second
	maxFrameBytes = 64 << 10
)

// session adapts one WebSocket connection to the board.Session contract.
// Delivery is buffered and never blocks the caller: a client that cannot
// drain its buffer loses events and converges on its next sync.
type session struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newSession(id string, conn *websocket.Conn, sendBuf int, logger *slog.Logger) *session {
	return &session{
		id:     id,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuf),
		closed: make(chan struct{}),
	}
}

func (s *session) ID() string { return s.id }

// Send queues ev for the write pump. Reports false when the session is
// closed or its buffer is full.
func (s *session) Send(ev board.Event) bool {
	frame, err := encodeEvent(ev)
	if err != nil {
		s.logger.Error("encode event", "event", ev.Name, "error", err)
		return false
	}
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// writePump is the only goroutine writing to the connection. It drains the
// send buffer and keeps the connection alive with pings; any write failure
// tears the session down.
func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.close()

	for {
		select {
		case <-s.closed:
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("write failed", "session_id", s.id, "error", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
