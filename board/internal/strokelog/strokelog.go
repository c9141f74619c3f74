// CLAUDE:SUMMARY Bounded ordered stroke log: append with id/ts stamping, oldest-first trimming, truncate, wholesale replace, snapshot.
// Package strokelog implements the authoritative ordered log of strokes.
// The log is bounded: appends past the limit silently drop the oldest
// entries. It is not goroutine-safe; the board sequencer is its only
// caller during operation handling.
package strokelog

import (
	"time"

	"github.com/hazyhaar/ardoise/idgen"
)

// Stroke kinds. Erase strokes composite the background color over prior
// content; the record shape is identical.
const (
	KindDraw  = "draw"
	KindErase = "erase"
)

// Stroke is one atomic line-segment operation. Immutable once appended:
// ID and TS are assigned by the log, never by clients.
type Stroke struct {
	ID     string  `json:"id"`
	Origin string  `json:"origin"`
	TS     int64   `json:"ts"` // Unix milliseconds
	X0     float64 `json:"x0"`
	Y0     float64 `json:"y0"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	Color  string  `json:"color"`
	Size   float64 `json:"size"`
	Tool   string  `json:"tool"`
	Kind   string  `json:"kind"`
}

// StrokeInput is a validated client payload, ready to be stamped and stored.
type StrokeInput struct {
	X0    float64
	Y0    float64
	X1    float64
	Y1    float64
	Color string
	Size  float64
	Tool  string
	Kind  string
}

// Log is the bounded ordered sequence of strokes. Insertion order is the
// single global causal order.
type Log struct {
	maxSize int
	newID   idgen.Generator
	now     func() int64
	entries []Stroke
}

// Option customises a Log.
type Option func(*Log)

// WithIDGenerator overrides the stroke ID generator (tests).
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Log) { l.newID = gen }
}

// WithClock overrides the Unix-millisecond clock (tests).
func WithClock(now func() int64) Option {
	return func(l *Log) { l.now = now }
}

// New creates an empty Log bounded at maxSize entries.
func New(maxSize int, opts ...Option) *Log {
	l := &Log{
		maxSize: maxSize,
		newID:   idgen.Default,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append stamps the input with a fresh ID and timestamp, stores it at the
// tail, and trims the oldest overflow. Trimming is silent and lossy:
// sessions whose early strokes vanish are not notified.
func (l *Log) Append(in StrokeInput, origin string) Stroke {
	s := Stroke{
		ID:     l.newID(),
		Origin: origin,
		TS:     l.now(),
		X0:     in.X0,
		Y0:     in.Y0,
		X1:     in.X1,
		Y1:     in.Y1,
		Color:  in.Color,
		Size:   in.Size,
		Tool:   in.Tool,
		Kind:   in.Kind,
	}
	l.entries = append(l.entries, s)
	l.trim()
	return s
}

// AppendBatch stores externally supplied strokes verbatim (offline sync
// queues). No per-element validation, no restamping: a documented trust
// boundary. Returns the number accepted before trimming.
func (l *Log) AppendBatch(list []Stroke) int {
	l.entries = append(l.entries, list...)
	l.trim()
	return len(list)
}

// Truncate drops every entry past target, keeping the first target entries.
// Only 0 <= target < Len is accepted; anything else is a no-op returning
// ok=false. Returns a snapshot of the resulting log on success.
func (l *Log) Truncate(target int) ([]Stroke, bool) {
	if target < 0 || target >= len(l.entries) {
		return nil, false
	}
	l.entries = l.entries[:target]
	return l.Snapshot(), true
}

// ReplaceAll swaps the whole log for list, trimmed to the bound keeping the
// newest entries. Used by clear (empty list) and restore.
func (l *Log) ReplaceAll(list []Stroke) {
	if over := len(list) - l.maxSize; over > 0 {
		list = list[over:]
	}
	l.entries = make([]Stroke, len(list))
	copy(l.entries, list)
}

// Snapshot returns a point-in-time copy. Never the live slice: callers may
// hold it across later mutations (persistence, broadcast marshalling).
func (l *Log) Snapshot() []Stroke {
	out := make([]Stroke, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int { return len(l.entries) }

// MaxSize returns the configured bound.
func (l *Log) MaxSize() int { return l.maxSize }

// Oldest returns the first entry, ok=false when empty.
func (l *Log) Oldest() (Stroke, bool) {
	if len(l.entries) == 0 {
		return Stroke{}, false
	}
	return l.entries[0], true
}

// Newest returns the last entry, ok=false when empty.
func (l *Log) Newest() (Stroke, bool) {
	if len(l.entries) == 0 {
		return Stroke{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *Log) trim() {
	over := len(l.entries) - l.maxSize
	if over <= 0 {
		return
	}
	copy(l.entries, l.entries[over:])
	l.entries = l.entries[:l.maxSize]
}
