// CLAUDE:SUMMARY REST surface of the board server: health and stats gauges, backup/restore/sync, PDF export, event journal, websocket mount.
// Package rest assembles the board's HTTP API. Everything here is a thin
// adapter: handlers decode, call one Service method, encode. State lives in
// the board engine, never in the router.
package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/ardoise/board"
	"github.com/hazyhaar/ardoise/export"
	"github.com/hazyhaar/ardoise/observability"
	"github.com/hazyhaar/ardoise/shield"
)

// NewRouter wires the REST endpoints and the websocket gateway around the
// board service. started feeds the health endpoint's uptime gauge.
func NewRouter(svc *board.Service, gateway http.Handler, journal *observability.Journal, started time.Time) *chi.Mux {
	r := chi.NewRouter()
	r.Use(shield.DefaultStack()...)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		n, err := svc.Len(req.Context())
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"strokeCount":     n,
			"maxStrokes":      svc.MaxLogSize(),
			"connectionCount": svc.Sessions(),
			"uptimeSeconds":   int64(time.Since(started).Seconds()),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		st, err := svc.Stats(req.Context())
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/backup", func(w http.ResponseWriter, req *http.Request) {
		snap, err := svc.Snapshot(req.Context())
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		name := fmt.Sprintf("ardoise-backup-%s.json", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Disposition", "attachment; filename="+name)
		writeJSON(w, http.StatusOK, map[string]any{
			"exportedAt": time.Now().UnixMilli(),
			"strokes":    len(snap),
			"data":       snap,
		})
	})

	r.Post("/restore", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
		strokes, err := board.DecodeStrokeList(body.Data)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		n, err := svc.Restore(req.Context(), strokes)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "restored",
			"strokes": n,
		})
	})

	r.Post("/sync", func(w http.ResponseWriter, req *http.Request) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
			return
		}
		strokes, err := board.DecodeStrokeList(raw)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		total, err := svc.SyncBatch(req.Context(), strokes)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "synced",
			"total":  total,
		})
	})

	r.Get("/export/pdf", func(w http.ResponseWriter, req *http.Request) {
		snap, err := svc.Snapshot(req.Context())
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		// Render to memory first so an encoder failure can still return
		// a clean error status.
		var buf bytes.Buffer
		cfg := export.PDFConfig{Title: "ardoise " + time.Now().Format("2006-01-02 15:04")}
		if err := export.WritePDF(&buf, snap, cfg); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		name := fmt.Sprintf("ardoise-%s.pdf", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename="+name)
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	})

	r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
		events, err := journal.RecentEvents(req.Context(), req.URL.Query().Get("type"), queryInt(req, "limit", 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if events == nil {
			events = []observability.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	})

	r.Handle("/ws", gateway)

	return r
}

// httpStatus maps service errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, board.ErrNotArray), errors.Is(err, board.ErrInvalidStroke):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
