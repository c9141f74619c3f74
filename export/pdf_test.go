package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hazyhaar/ardoise/board"
)

func TestWritePDF_RendersStrokes(t *testing.T) {
	// WHAT: A mixed snapshot renders to a well-formed PDF document.
	// WHY: Export is the only way drawings leave the board; a broken
	// document loses the day's work at the exact moment someone wants it.
	strokes := []board.Stroke{
		{ID: "a", X0: 0, Y0: 0, X1: 500, Y1: 300, Color: "#ff0000", Size: 4, Kind: board.KindDraw},
		{ID: "b", X0: 500, Y0: 300, X1: 900, Y1: 100, Color: "#00ff00", Size: 2, Kind: board.KindDraw},
		{ID: "c", X0: 200, Y0: 200, X1: 300, Y1: 200, Size: 20, Kind: board.KindErase},
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, strokes, PDFConfig{Title: "ardoise"}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Fatalf("output does not start with a PDF header: %q", buf.Bytes()[:16])
	}
	if buf.Len() < 500 {
		t.Fatalf("output is %d bytes, suspiciously small", buf.Len())
	}
}

func TestWritePDF_EmptySnapshot(t *testing.T) {
	// WHAT: An empty board still renders a valid single-page document.
	// WHY: Exporting right after a clear is a legal request.
	var buf bytes.Buffer
	if err := WritePDF(&buf, nil, PDFConfig{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Fatal("output is not a PDF")
	}
}

func TestWritePDF_GarbageColorsFallBack(t *testing.T) {
	// WHAT: Unparseable colors render as black instead of failing.
	// WHY: Restored backups can carry any color string; export must not be
	// the place that rejects them.
	strokes := []board.Stroke{
		{X0: 1, Y0: 1, X1: 2, Y1: 2, Color: "cornflower", Kind: board.KindDraw},
		{X0: 1, Y0: 1, X1: 2, Y1: 2, Color: "#12", Kind: board.KindDraw},
		{X0: 1, Y0: 1, X1: 2, Y1: 2, Color: "", Kind: board.KindDraw},
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, strokes, PDFConfig{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	// WHAT: Short and long hex forms decode to the same channels.
	// WHY: Clients send both #abc and #aabbcc depending on the picker.
	cases := []struct {
		in      string
		r, g, b int
	}{
		{"#ff0000", 255, 0, 0},
		{"#00ff7f", 0, 255, 127},
		{"#abc", 170, 187, 204},
		{"#000000", 0, 0, 0},
		{"nonsense", 0, 0, 0},
		{"", 0, 0, 0},
	}
	for _, c := range cases {
		r, g, b := parseHexColor(c.in)
		if r != c.r || g != c.g || b != c.b {
			t.Errorf("parseHexColor(%q) = %d,%d,%d, want %d,%d,%d", c.in, r, g, b, c.r, c.g, c.b)
		}
	}
}
