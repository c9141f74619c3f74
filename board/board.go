// CLAUDE:SUMMARY Board engine: single-sequencer Service owning the stroke log, session hub, snapshot persistence and the daily reset policy.
package board

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/ardoise/board/internal/hub"
	"github.com/hazyhaar/ardoise/board/internal/persist"
	"github.com/hazyhaar/ardoise/board/internal/strokelog"
	"github.com/hazyhaar/ardoise/dbopen"
	"github.com/hazyhaar/ardoise/idgen"
	"github.com/hazyhaar/ardoise/observability"
)

// Service is the collaborative board engine. Every operation that touches
// the stroke log funnels through one goroutine, which is what gives the log
// its total order; exported methods are safe to call from any goroutine.
type Service struct {
	cfg     Config
	logger  *slog.Logger
	journal *observability.Journal
	newID   idgen.Generator
	now     func() time.Time

	log   *strokelog.Log
	hub   *hub.Hub
	store Store
	saver *persist.Saver
	db    *sql.DB // owned when the sqlite backend is configured

	ops  chan func()
	stop chan struct{}
	done chan struct{}

	saverCancel context.CancelFunc
	saverDone   chan struct{}

	lastResetDay string
	started      bool

	closeOnce sync.Once
	closeErr  error
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithJournal records board events to j. The service does not close it.
func WithJournal(j *observability.Journal) ServiceOption {
	return func(s *Service) { s.journal = j }
}

// WithStore injects a snapshot store, overriding Backend, DataFile and
// DBPath.
func WithStore(st Store) ServiceOption {
	return func(s *Service) { s.store = st }
}

// WithClock overrides the time source. Use in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides stroke ID generation. Use in tests.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates a board Service. Call Start before submitting operations.
func New(cfg Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Default,
		now:    time.Now,
		hub:    hub.New(hub.WithLogger(logger)),
		ops:    make(chan func()),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.log = strokelog.New(cfg.MaxLogSize,
		strokelog.WithIDGenerator(func() string { return svc.newID() }),
		strokelog.WithClock(func() int64 { return svc.now().UnixMilli() }),
	)

	if svc.store == nil {
		switch cfg.Backend {
		case BackendSQLite:
			db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(persist.Schema))
			if err != nil {
				return nil, fmt.Errorf("board: open stroke database: %w", err)
			}
			svc.db = db
			svc.store = persist.NewSQLiteStore(db)
		case BackendFile:
			svc.store = persist.NewFileStore(cfg.DataFile)
		default:
			return nil, fmt.Errorf("board: unknown backend %q", cfg.Backend)
		}
	}

	svc.saver = persist.NewSaver(svc.store, svc.snapshotForSave, cfg.SaveInterval,
		persist.WithLogger(logger),
		persist.WithNotify(svc.noteSave),
	)
	return svc, nil
}

// Start loads the persisted snapshot, applies the daily-boundary discard,
// and launches the sequencer and the background saver. Non-blocking.
func (s *Service) Start(ctx context.Context) error {
	list, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("snapshot unreadable, starting empty", "error", err)
		s.journalRecord(observability.EventLoad, "", fmt.Sprintf(`{"error":%q}`, err.Error()), false)
		list = nil
	}

	today := day(s.now())
	if len(list) > 0 {
		if d := day(time.UnixMilli(list[0].TS)); d != today {
			s.logger.Info("discarding snapshot from previous day",
				"snapshot_day", d, "strokes", len(list))
			list = nil
		}
	}
	s.log.ReplaceAll(list)
	s.lastResetDay = today
	if err == nil {
		s.journalRecord(observability.EventLoad, "",
			fmt.Sprintf(`{"strokes":%d}`, s.log.Len()), true)
	}

	go s.run()

	saverCtx, cancel := context.WithCancel(context.Background())
	s.saverCancel = cancel
	s.saverDone = make(chan struct{})
	go func() {
		defer close(s.saverDone)
		s.saver.Run(saverCtx)
	}()

	s.started = true
	s.logger.Info("board: started",
		"strokes", s.log.Len(),
		"max_log_size", s.cfg.MaxLogSize,
		"backend", s.cfg.Backend)
	return nil
}

// Close stops the sequencer, performs a final save and releases the store.
// Safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		if !s.started {
			if s.db != nil {
				s.closeErr = s.db.Close()
			}
			return
		}
		close(s.stop)
		<-s.done
		s.saverCancel()
		<-s.saverDone

		// The sequencer is stopped; the log is quiescent.
		if err := s.saver.SaveNow(context.Background(), s.log.Snapshot()); err != nil {
			s.closeErr = fmt.Errorf("board: final save: %w", err)
		}
		if s.db != nil {
			if err := s.db.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		s.logger.Info("board: closed")
	})
	return s.closeErr
}

// --- Drawing ---

// SubmitStroke validates, stamps and appends a stroke, then pushes it to
// every session except the originator, who already drew it locally.
func (s *Service) SubmitStroke(ctx context.Context, sessionID string, in StrokeInput) (Stroke, error) {
	if err := checkInput(in); err != nil {
		return Stroke{}, err
	}
	var st Stroke
	err := s.do(ctx, func() {
		st = s.log.Append(in, sessionID)
		s.hub.BroadcastExcept(sessionID, Event{Name: EventStrokeAdded, Data: st})
		s.journalRecord(observability.EventStrokeAdded, sessionID, "", true)
	})
	return st, err
}

// --- Reconciliation ---

// Undo truncates the log to target strokes and pushes the resulting canvas
// to every session, the originator included. Targets outside
// [0, currentLength) are ignored: a concurrent undo may have already
// shrunk the log past the caller's view.
func (s *Service) Undo(ctx context.Context, sessionID string, target int) (bool, error) {
	var applied bool
	err := s.do(ctx, func() {
		before := s.log.Len()
		snap, ok := s.log.Truncate(target)
		applied = ok
		if !ok {
			s.logger.Debug("undo ignored",
				"session_id", sessionID, "target", target, "strokes", before)
			return
		}
		s.hub.Broadcast(Event{Name: EventCanvasData, Data: snap})
		s.journalRecord(observability.EventUndo, sessionID,
			fmt.Sprintf(`{"target":%d,"removed":%d}`, target, before-target), true)
	})
	return applied, err
}

// Clear empties the log, saves immediately and tells every session to wipe
// its canvas.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.do(ctx, func() {
		s.clearLocked(sessionID, observability.EventClear, "")
	})
}

// clearLocked runs inside the sequencer.
func (s *Service) clearLocked(sessionID, eventType, detail string) {
	s.log.ReplaceAll(nil)
	s.persistNow(s.log.Snapshot())
	s.hub.Broadcast(Event{Name: EventCanvasCleared})
	s.journalRecord(eventType, sessionID, detail, true)
}

// Restore replaces the whole log with list, trimming to capacity, then
// saves and pushes the new canvas to every session. Elements are accepted
// as-is; the uploader owns their shape. Returns the stored count.
func (s *Service) Restore(ctx context.Context, list []Stroke) (int, error) {
	var stored int
	err := s.do(ctx, func() {
		s.log.ReplaceAll(list)
		stored = s.log.Len()
		snap := s.log.Snapshot()
		s.persistNow(snap)
		s.hub.Broadcast(Event{Name: EventCanvasData, Data: snap})
		s.journalRecord(observability.EventRestore, "",
			fmt.Sprintf(`{"received":%d,"stored":%d}`, len(list), stored), true)
	})
	return stored, err
}

// SyncBatch appends already-stamped strokes verbatim, for clients flushing
// an offline queue. The batch is trimmed against capacity like any append
// and the merged canvas is pushed to every session. Returns the log length
// after the merge.
func (s *Service) SyncBatch(ctx context.Context, list []Stroke) (int, error) {
	var total int
	err := s.do(ctx, func() {
		s.log.AppendBatch(list)
		total = s.log.Len()
		s.hub.Broadcast(Event{Name: EventCanvasData, Data: s.log.Snapshot()})
		s.journalRecord(observability.EventSyncBatch, "",
			fmt.Sprintf(`{"received":%d,"total":%d}`, len(list), total), true)
	})
	return total, err
}

// DailyReset clears the board when the calendar day has changed since the
// last reset. Any session may trigger it; repeat triggers on the same day
// are no-ops. Returns whether a reset happened.
func (s *Service) DailyReset(ctx context.Context, sessionID string) (bool, error) {
	var reset bool
	err := s.do(ctx, func() {
		today := day(s.now())
		if today == s.lastResetDay {
			return
		}
		s.lastResetDay = today
		s.clearLocked(sessionID, observability.EventDailyReset, fmt.Sprintf(`{"day":%q}`, today))
		s.logger.Info("daily reset", "day", today)
		reset = true
	})
	return reset, err
}

// --- Sessions ---

// AttachSession registers sess for broadcasts and schedules the settle
// sync: after SettleDelay the full canvas is pushed to it, so strokes drawn
// by others during the handshake still arrive.
func (s *Service) AttachSession(ctx context.Context, sess Session) error {
	return s.do(ctx, func() {
		s.hub.Register(sess)
		s.journalRecord(observability.EventSessionOpen, sess.ID(), "", true)

		id := sess.ID()
		time.AfterFunc(s.cfg.SettleDelay, func() {
			err := s.do(context.Background(), func() { s.sendCanvas(id) })
			if err != nil {
				s.logger.Debug("settle sync skipped", "session_id", id, "error", err)
			}
		})
	})
}

// DetachSession drops a session from broadcasts. Unknown ids are ignored.
func (s *Service) DetachSession(ctx context.Context, sessionID string) error {
	return s.do(ctx, func() {
		s.hub.Unregister(sessionID)
		s.journalRecord(observability.EventSessionClose, sessionID, "", true)
	})
}

// RequestSync pushes the current canvas to one session immediately.
func (s *Service) RequestSync(ctx context.Context, sessionID string) error {
	return s.do(ctx, func() { s.sendCanvas(sessionID) })
}

// --- Reads ---

// Snapshot returns a copy of the current log.
func (s *Service) Snapshot(ctx context.Context) ([]Stroke, error) {
	var snap []Stroke
	err := s.do(ctx, func() { snap = s.log.Snapshot() })
	return snap, err
}

// Len returns the number of strokes in the log.
func (s *Service) Len(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() { n = s.log.Len() })
	return n, err
}

// Stats aggregates the current log for the stats endpoint.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.do(ctx, func() { st = computeStats(s.log.Snapshot()) })
	return st, err
}

// Sessions returns the number of connected sessions.
func (s *Service) Sessions() int { return s.hub.Count() }

// MaxLogSize returns the configured log bound.
func (s *Service) MaxLogSize() int { return s.cfg.MaxLogSize }

// --- Internal ---

// run is the sequencer: operations execute one at a time in arrival order.
func (s *Service) run() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.stop:
			return
		}
	}
}

// do submits fn to the sequencer and waits for it to finish.
func (s *Service) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	op := func() {
		fn()
		close(ran)
	}
	select {
	case s.ops <- op:
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendCanvas runs inside the sequencer.
func (s *Service) sendCanvas(sessionID string) {
	s.hub.Send(sessionID, Event{Name: EventCanvasData, Data: s.log.Snapshot()})
}

// persistNow writes snap synchronously. Failures are logged and reported to
// the journal, never propagated: the next interval save retries.
func (s *Service) persistNow(snap []Stroke) {
	if err := s.saver.SaveNow(context.Background(), snap); err != nil {
		s.logger.Error("forced save failed", "error", err)
	}
}

func (s *Service) snapshotForSave(ctx context.Context) ([]strokelog.Stroke, error) {
	return s.Snapshot(ctx)
}

func (s *Service) noteSave(r persist.SaveResult) {
	if r.Err != nil {
		s.journalRecord(observability.EventSave, "",
			fmt.Sprintf(`{"strokes":%d,"forced":%t,"error":%q}`, r.Count, r.Forced, r.Err.Error()), false)
		return
	}
	s.journalRecord(observability.EventSave, "",
		fmt.Sprintf(`{"strokes":%d,"forced":%t,"took_ms":%d}`, r.Count, r.Forced, r.Took.Milliseconds()), true)
}

func (s *Service) journalRecord(eventType, sessionID, detail string, success bool) {
	if s.journal == nil {
		return
	}
	s.journal.Record(observability.Event{
		Type:      eventType,
		SessionID: sessionID,
		Detail:    detail,
		Success:   success,
	})
}

// day renders t's local calendar day, the granularity of the reset policy.
func day(t time.Time) string { return t.Format("2006-01-02") }
