// Package observability provides SQLite-native monitoring for the ardoise
// engine: a board activity journal and worker liveness heartbeats.
//
// Each component writes to a shared observability database (separate from the
// snapshot store to avoid write contention). Call Init() on the shared
// *sql.DB first, then pass it to the individual constructors.
//
// All persistence is async and non-blocking: buffer overflow drops events
// rather than applying backpressure to the engine's sequencer.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/ardoise/idgen"
)

// Board event types recorded by the engine.
const (
	EventStrokeAdded  = "stroke_added"
	EventUndo         = "undo"
	EventClear        = "clear"
	EventRestore      = "restore"
	EventSyncBatch    = "sync_batch"
	EventDailyReset   = "daily_reset"
	EventSessionOpen  = "session_open"
	EventSessionClose = "session_close"
	EventSave         = "save"
	EventLoad         = "load"
)

// Event is a single domain-level record in the board journal.
type Event struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"event_type"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"` // optional JSON
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal persists board events asynchronously. Record never blocks: when
// the buffer is full the event is dropped and a warning logged, so a slow
// observability database can never stall the sequencer.
type Journal struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan Event
	stop  chan struct{}
	done  chan struct{}
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithJournalIDGenerator sets a custom ID generator for event IDs.
func WithJournalIDGenerator(gen idgen.Generator) JournalOption {
	return func(j *Journal) { j.newID = gen }
}

// NewJournal creates an async journal. Recommended bufferSize: 1000.
func NewJournal(db *sql.DB, bufferSize int, opts ...JournalOption) *Journal {
	j := &Journal{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
		ch:    make(chan Event, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(j)
	}
	go j.flushLoop()
	return j
}

// Record queues an event for async persistence. Non-blocking: if the buffer
// is full the event is dropped.
func (j *Journal) Record(e Event) {
	if e.EventID == "" {
		e.EventID = j.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	select {
	case j.ch <- e:
	default:
		slog.Warn("journal buffer full, event dropped", "event_type", e.Type)
	}
}

// RecentEvents returns the newest events, optionally filtered by type.
// Pass an empty eventType for all types. Limit defaults to 100.
func (j *Journal) RecentEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	q := `SELECT event_id, event_type, session_id, detail, success, created_at
		FROM board_events WHERE 1=1`
	var args []any
	if eventType != "" {
		q += " AND event_type = ?"
		args = append(args, eventType)
	}
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query board events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var sessionID, detail sql.NullString
		var ts int64
		if err := rows.Scan(&e.EventID, &e.Type, &sessionID, &detail, &e.Success, &ts); err != nil {
			return nil, fmt.Errorf("scan board event: %w", err)
		}
		e.SessionID = sessionID.String
		e.Detail = detail.String
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close drains the buffer and stops the flush goroutine.
func (j *Journal) Close() error {
	close(j.stop)
	<-j.done
	return nil
}

func (j *Journal) flushLoop() {
	defer close(j.done)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	batch := make([]Event, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error("journal: begin tx", "error", err)
			return
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO board_events
			(event_id, event_type, session_id, detail, success, created_at)
			VALUES (?,?,?,?,?,?)`)
		if err != nil {
			tx.Rollback()
			slog.Error("journal: prepare", "error", err)
			return
		}
		defer stmt.Close()

		for _, e := range batch {
			if _, err := stmt.ExecContext(ctx,
				e.EventID, e.Type, e.SessionID, e.Detail, e.Success, e.CreatedAt.Unix(),
			); err != nil {
				slog.Error("journal: insert", "error", err, "event_id", e.EventID)
			}
		}
		if err := tx.Commit(); err != nil {
			slog.Error("journal: commit", "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-j.stop:
			// drain channel
			for {
				select {
				case e := <-j.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-j.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	EventsDays     int
	HeartbeatsDays int
	RunVacuumAfter bool
}

// Cleanup deletes records exceeding the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	type cleanupTarget struct {
		table  string
		column string
		days   int
	}
	targets := []cleanupTarget{
		{"board_events", "created_at", cfg.EventsDays},
		{"worker_heartbeats", "timestamp", cfg.HeartbeatsDays},
	}

	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days*86400)
		q := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.table, t.column)
		if _, err := db.ExecContext(ctx, q, cutoff); err != nil {
			return fmt.Errorf("cleanup %s: %w", t.table, err)
		}
	}

	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
	}
	return nil
}
