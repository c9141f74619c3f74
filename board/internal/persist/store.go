// CLAUDE:SUMMARY Store interface for durable stroke log snapshots: Save overwrites wholesale, Load returns empty when nothing exists.
// Package persist owns durable snapshots of the stroke log: pluggable
// stores (JSON file, SQLite) and the background saver that writes them on
// an interval. Every save fully overwrites the previous snapshot; there is
// no append log or WAL at this layer.
package persist

import (
	"context"

	"github.com/hazyhaar/ardoise/board/internal/strokelog"
)

// Store persists and recovers complete log snapshots.
type Store interface {
	// Save overwrites the stored snapshot with list.
	Save(ctx context.Context, list []strokelog.Stroke) error
	// Load returns the stored snapshot. A store with no snapshot yet
	// returns an empty slice and no error; corruption returns an error.
	Load(ctx context.Context) ([]strokelog.Stroke, error)
}
