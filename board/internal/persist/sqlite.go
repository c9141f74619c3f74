// CLAUDE:SUMMARY SQLite snapshot store: replace-all save in one transaction, position-ordered load.
package persist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/ardoise/board/internal/strokelog"
	"github.com/hazyhaar/ardoise/dbopen"
)

// Schema creates the snapshot table. Pass it to dbopen.WithSchema when
// opening the strokes database.
const Schema = `
CREATE TABLE IF NOT EXISTS strokes (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	origin   TEXT NOT NULL DEFAULT '',
	ts       INTEGER NOT NULL,
	x0       REAL NOT NULL,
	y0       REAL NOT NULL,
	x1       REAL NOT NULL,
	y1       REAL NOT NULL,
	color    TEXT NOT NULL DEFAULT '',
	size     REAL NOT NULL DEFAULT 0,
	tool     TEXT NOT NULL DEFAULT '',
	kind     TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps the snapshot in a strokes table, one row per stroke
// ordered by position. Save replaces the whole table in one transaction so
// readers never observe a partial snapshot.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db, which must have Schema applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save replaces all rows with list inside a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, list []strokelog.Stroke) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM strokes`); err != nil {
			return fmt.Errorf("persist: clear strokes: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO strokes (position, id, origin, ts, x0, y0, x1, y1, color, size, tool, kind)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("persist: prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, st := range list {
			_, err := stmt.ExecContext(ctx, i, st.ID, st.Origin, st.TS,
				st.X0, st.Y0, st.X1, st.Y1, st.Color, st.Size, st.Tool, st.Kind)
			if err != nil {
				return fmt.Errorf("persist: insert stroke %d: %w", i, err)
			}
		}
		return nil
	})
}

// Load returns all rows in position order.
func (s *SQLiteStore) Load(ctx context.Context) ([]strokelog.Stroke, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, origin, ts, x0, y0, x1, y1, color, size, tool, kind
		FROM strokes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("persist: query strokes: %w", err)
	}
	defer rows.Close()

	list := []strokelog.Stroke{}
	for rows.Next() {
		var st strokelog.Stroke
		err := rows.Scan(&st.ID, &st.Origin, &st.TS,
			&st.X0, &st.Y0, &st.X1, &st.Y1, &st.Color, &st.Size, &st.Tool, &st.Kind)
		if err != nil {
			return nil, fmt.Errorf("persist: scan stroke: %w", err)
		}
		list = append(list, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persist: iterate strokes: %w", err)
	}
	return list, nil
}
