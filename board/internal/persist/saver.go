// CLAUDE:SUMMARY Background saver with a fixed save interval plus synchronous SaveNow for clear, restore and shutdown flushes.
package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/ardoise/board/internal/strokelog"
)

// SnapshotFunc captures the current log contents. Implementations route
// through the sequencer so the capture is consistent.
type SnapshotFunc func(ctx context.Context) ([]strokelog.Stroke, error)

// SaveResult describes one completed save attempt.
type SaveResult struct {
	Count  int
	Took   time.Duration
	Forced bool
	Err    error
}

// Saver drives periodic snapshots into a Store.
type Saver struct {
	store    Store
	snapshot SnapshotFunc
	interval time.Duration
	logger   *slog.Logger
	notify   func(SaveResult)
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithLogger sets the saver's logger.
func WithLogger(logger *slog.Logger) SaverOption {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotify registers a callback invoked after every save attempt,
// successful or not. Called from the saver's goroutine for interval saves
// and from the caller's goroutine for SaveNow.
func WithNotify(fn func(SaveResult)) SaverOption {
	return func(s *Saver) { s.notify = fn }
}

// NewSaver returns a Saver writing snapshots from snapshot into store every
// interval. A non-positive interval falls back to 30s.
func NewSaver(store Store, snapshot SnapshotFunc, interval time.Duration, opts ...SaverOption) *Saver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &Saver{
		store:    store,
		snapshot: snapshot,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. It does not save on the way out; the
// owner performs the final SaveNow once the sequencer has stopped accepting
// new work.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Saver) tick(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.logger.Debug("snapshot skipped", "error", err)
		return
	}
	if err := s.save(ctx, snap, false); err != nil {
		s.logger.Error("interval save failed", "error", err)
	}
}

// SaveNow writes snap to the store synchronously and reports the result to
// the notify hook.
func (s *Saver) SaveNow(ctx context.Context, snap []strokelog.Stroke) error {
	return s.save(ctx, snap, true)
}

func (s *Saver) save(ctx context.Context, snap []strokelog.Stroke, forced bool) error {
	start := time.Now()
	err := s.store.Save(ctx, snap)
	res := SaveResult{Count: len(snap), Took: time.Since(start), Forced: forced, Err: err}
	if s.notify != nil {
		s.notify(res)
	}
	return err
}
