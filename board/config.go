// CLAUDE:SUMMARY Configuration struct and defaults for the board engine: log bound, settle delay, save interval, persistence backend.
package board

import "time"

// Snapshot store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds the engine settings. The zero value is usable: defaults are
// applied by New.
type Config struct {
	// MaxLogSize bounds the stroke log; the oldest strokes fall off when a
	// new one would exceed it. Default 2000.
	MaxLogSize int

	// SettleDelay is how long after a session attaches before the full
	// canvas is pushed to it, leaving the transport handshake time to
	// finish. Default 500ms.
	SettleDelay time.Duration

	// SaveInterval is the background snapshot cadence. Default 30s.
	SaveInterval time.Duration

	// Backend selects the snapshot store, BackendFile or BackendSQLite.
	// Default BackendFile. Ignored when a store is injected.
	Backend string

	// DataFile is the snapshot path for the file backend.
	DataFile string

	// DBPath is the database path for the sqlite backend.
	DBPath string
}

func (c *Config) defaults() {
	if c.MaxLogSize <= 0 {
		c.MaxLogSize = 2000
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = 30 * time.Second
	}
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.DataFile == "" {
		c.DataFile = "data/canvas-data.json"
	}
	if c.DBPath == "" {
		c.DBPath = "data/strokes.db"
	}
}
