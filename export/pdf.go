// CLAUDE:SUMMARY Renders stroke snapshots to PDF: A4 landscape, uniform scale fit, erase strokes painted white.
// Package export renders board snapshots into portable formats. The only
// format today is PDF: strokes are replayed as vector lines, so the output
// stays sharp at any zoom and erase strokes paint over in white exactly as
// they did on screen.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/hazyhaar/ardoise/board"
)

// PDFConfig controls how canvas coordinates map onto the page.
type PDFConfig struct {
	// CanvasWidth and CanvasHeight are the client canvas dimensions in
	// pixels. Strokes are scaled from this space to fit an A4 landscape
	// page. Defaults 1920x1080.
	CanvasWidth  float64
	CanvasHeight float64

	// Title is printed in the page header when set.
	Title string
}

func (c *PDFConfig) defaults() {
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = 1920
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = 1080
	}
}

const pageMargin = 10 // mm

// WritePDF renders strokes in log order to w.
func WritePDF(w io.Writer, strokes []board.Stroke, cfg PDFConfig) error {
	cfg.defaults()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	if cfg.Title != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(120, 120, 120)
		pdf.Text(pageMargin, pageMargin-3, cfg.Title)
	}

	// One uniform scale for both axes keeps stroke geometry undistorted.
	availW := pageW - 2*pageMargin
	availH := pageH - 2*pageMargin
	scale := availW / cfg.CanvasWidth
	if s := availH / cfg.CanvasHeight; s < scale {
		scale = s
	}

	for _, st := range strokes {
		r, g, b := strokeColor(st)
		pdf.SetDrawColor(r, g, b)

		width := st.Size * scale
		if width < 0.2 {
			width = 0.2
		}
		pdf.SetLineWidth(width)

		pdf.Line(
			pageMargin+st.X0*scale, pageMargin+st.Y0*scale,
			pageMargin+st.X1*scale, pageMargin+st.Y1*scale,
		)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: render pdf: %w", err)
	}
	return nil
}

// strokeColor picks the draw color: erase strokes paint white, everything
// else parses its hex color and falls back to black.
func strokeColor(st board.Stroke) (int, int, int) {
	if st.Kind == board.KindErase {
		return 255, 255, 255
	}
	return parseHexColor(st.Color)
}

// parseHexColor accepts #rgb and #rrggbb. Anything else is black.
func parseHexColor(s string) (int, int, int) {
	if len(s) == 4 && s[0] == '#' {
		s = "#" + string([]byte{s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
