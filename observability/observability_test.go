package observability

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupObsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInit_CreatesAllTables(t *testing.T) {
	db := setupObsDB(t)
	tables := []string{
		"board_events", "worker_heartbeats", "_observability_metadata",
	}
	for _, table := range tables {
		var count int
		db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if count != 1 {
			t.Fatalf("table %s not found", table)
		}
	}
}

// --- Journal ---

func TestJournal_RecordAndQuery(t *testing.T) {
	db := setupObsDB(t)
	j := NewJournal(db, 100)

	j.Record(Event{
		Type:      EventStrokeAdded,
		SessionID: "sess_abc",
		Detail:    `{"tool":"pen"}`,
		Success:   true,
	})
	j.Record(Event{Type: EventClear, SessionID: "sess_abc", Success: true})

	// Close drains and flushes the buffer.
	j.Close()

	j2 := NewJournal(db, 100)
	defer j2.Close()

	events, err := j2.RecentEvents(context.Background(), EventStrokeAdded, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("stroke_added count: got %d", len(events))
	}
	if events[0].SessionID != "sess_abc" {
		t.Fatalf("session_id: got %q", events[0].SessionID)
	}
	if events[0].Detail != `{"tool":"pen"}` {
		t.Fatalf("detail: got %q", events[0].Detail)
	}
	if !events[0].Success {
		t.Fatal("success flag lost")
	}

	all, err := j2.RecentEvents(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all events count: got %d", len(all))
	}
}

func TestJournal_AssignsEventID(t *testing.T) {
	db := setupObsDB(t)
	j := NewJournal(db, 10)
	j.Record(Event{Type: EventUndo, SessionID: "sess_x", Success: false})
	j.Close()

	j2 := NewJournal(db, 10)
	defer j2.Close()
	events, err := j2.RecentEvents(context.Background(), EventUndo, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("count: got %d", len(events))
	}
	if events[0].EventID == "" {
		t.Fatal("event_id should be assigned on record")
	}
	if events[0].Success {
		t.Fatal("success=false should round-trip")
	}
}

func TestJournal_DropOnFullBuffer(t *testing.T) {
	db := setupObsDB(t)
	j := NewJournal(db, 1)

	// Flood well past the buffer; Record must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			j.Record(Event{Type: EventStrokeAdded, Success: true})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on full buffer")
	}
	j.Close()
}

func TestCleanup_RemovesOldEvents(t *testing.T) {
	db := setupObsDB(t)

	old := time.Now().AddDate(0, 0, -40).Unix()
	db.Exec(`INSERT INTO board_events (event_id, event_type, success, created_at) VALUES ('e1', 'clear', 1, ?)`, old)
	db.Exec(`INSERT INTO board_events (event_id, event_type, success, created_at) VALUES ('e2', 'clear', 1, ?)`, time.Now().Unix())

	err := Cleanup(context.Background(), db, RetentionConfig{EventsDays: 30})
	if err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM board_events`).Scan(&count)
	if count != 1 {
		t.Fatalf("count after cleanup: got %d, want 1", count)
	}
}

func TestCleanup_ZeroDaysIsNoop(t *testing.T) {
	db := setupObsDB(t)

	old := time.Now().AddDate(0, 0, -400).Unix()
	db.Exec(`INSERT INTO board_events (event_id, event_type, success, created_at) VALUES ('e1', 'clear', 1, ?)`, old)

	if err := Cleanup(context.Background(), db, RetentionConfig{}); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM board_events`).Scan(&count)
	if count != 1 {
		t.Fatalf("zero retention should keep rows, got count %d", count)
	}
}

// --- HeartbeatWriter ---

func TestHeartbeatWriter_WriteAndLatest(t *testing.T) {
	db := setupObsDB(t)
	hw := NewHeartbeatWriter(db, "ardoise", time.Minute)

	if err := hw.WriteHeartbeat(); err != nil {
		t.Fatal(err)
	}

	hs, err := LatestHeartbeat(context.Background(), db, "ardoise", 3*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if hs == nil {
		t.Fatal("expected a heartbeat row")
	}
	if !hs.Alive {
		t.Fatal("fresh heartbeat should be alive")
	}
	if hs.GoroutinesCount <= 0 {
		t.Fatalf("goroutines_count: got %d", hs.GoroutinesCount)
	}
}

func TestLatestHeartbeat_NoneRecorded(t *testing.T) {
	db := setupObsDB(t)
	hs, err := LatestHeartbeat(context.Background(), db, "ghost", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if hs != nil {
		t.Fatal("expected nil for unknown worker")
	}
}

func TestHeartbeatWriter_Staleness(t *testing.T) {
	db := setupObsDB(t)

	stale := time.Now().Add(-time.Hour).Unix()
	db.Exec(`INSERT INTO worker_heartbeats
		(worker_name, hostname, worker_pid, timestamp, goroutines_count, memory_alloc_mb, memory_sys_mb, gc_count)
		VALUES ('ardoise', 'host', 1, ?, 5, 1.0, 2.0, 0)`, stale)

	hs, err := LatestHeartbeat(context.Background(), db, "ardoise", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if hs == nil {
		t.Fatal("expected a heartbeat row")
	}
	if hs.Alive {
		t.Fatal("hour-old heartbeat should be stale")
	}
	if hs.StaleSince == nil {
		t.Fatal("stale heartbeat should report stale_since")
	}
}

func TestHeartbeatWriter_StartStop(t *testing.T) {
	db := setupObsDB(t)
	hw := NewHeartbeatWriter(db, "ardoise", 10*time.Millisecond)

	hw.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	hw.Stop()

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM worker_heartbeats WHERE worker_name = 'ardoise'`).Scan(&count)
	if count < 2 {
		t.Fatalf("expected several heartbeats, got %d", count)
	}
}

func TestCleanup_Heartbeats(t *testing.T) {
	db := setupObsDB(t)

	old := time.Now().AddDate(0, 0, -10).Unix()
	db.Exec(`INSERT INTO worker_heartbeats
		(worker_name, hostname, worker_pid, timestamp)
		VALUES ('ardoise', 'host', 1, ?)`, old)
	db.Exec(`INSERT INTO worker_heartbeats
		(worker_name, hostname, worker_pid, timestamp)
		VALUES ('ardoise', 'host', 1, ?)`, time.Now().Unix())

	if err := Cleanup(context.Background(), db, RetentionConfig{HeartbeatsDays: 7}); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM worker_heartbeats`).Scan(&count)
	if count != 1 {
		t.Fatalf("count after cleanup: got %d, want 1", count)
	}
}
