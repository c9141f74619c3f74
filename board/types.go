// CLAUDE:SUMMARY Re-exports stroke log and persist types (Stroke, StrokeInput, Event, Session, Store) as the board public API.
package board

import (
	"github.com/hazyhaar/ardoise/board/internal/hub"
	"github.com/hazyhaar/ardoise/board/internal/persist"
	"github.com/hazyhaar/ardoise/board/internal/strokelog"
)

// Stroke is one drawn segment in the shared log.
type Stroke = strokelog.Stroke

// StrokeInput carries the client-supplied stroke fields before the log
// stamps an ID and timestamp.
type StrokeInput = strokelog.StrokeInput

// Event is one outbound message to a session.
type Event = hub.Event

// Session is a connected client able to receive events. Send must not
// block; it reports false when the event was dropped.
type Session = hub.Session

// Store persists snapshots of the stroke log.
type Store = persist.Store

// Stroke kinds.
const (
	KindDraw  = strokelog.KindDraw
	KindErase = strokelog.KindErase
)

// Outbound event names.
const (
	// EventCanvasData carries the full log as a Stroke array.
	EventCanvasData = "canvas-data"
	// EventStrokeAdded carries a single freshly stamped Stroke.
	EventStrokeAdded = "stroke-added"
	// EventCanvasCleared carries no payload.
	EventCanvasCleared = "canvas-cleared"
)
