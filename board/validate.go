// CLAUDE:SUMMARY Input validation for stroke payloads: all seven fields required, finite coordinates, positive size.
package board

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// wirePayload mirrors the draw/erase payload with pointer fields so a
// missing key can be told apart from a zero value.
type wirePayload struct {
	X0    *float64 `json:"x0"`
	Y0    *float64 `json:"y0"`
	X1    *float64 `json:"x1"`
	Y1    *float64 `json:"y1"`
	Color *string  `json:"color"`
	Size  *float64 `json:"size"`
	Tool  *string  `json:"tool"`
}

// DecodeStrokeInput parses a draw or erase payload. All seven fields must
// be present, the four coordinates finite, size finite and positive.
// Failures wrap ErrInvalidStroke; callers on the event channel drop those
// without notifying the client.
func DecodeStrokeInput(kind string, raw []byte) (StrokeInput, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return StrokeInput{}, fmt.Errorf("%w: %v", ErrInvalidStroke, err)
	}

	coords := []struct {
		name string
		v    *float64
	}{
		{"x0", w.X0}, {"y0", w.Y0}, {"x1", w.X1}, {"y1", w.Y1},
	}
	for _, c := range coords {
		if c.v == nil {
			return StrokeInput{}, fmt.Errorf("%w: missing %s", ErrInvalidStroke, c.name)
		}
		if !finite(*c.v) {
			return StrokeInput{}, fmt.Errorf("%w: %s is not finite", ErrInvalidStroke, c.name)
		}
	}
	if w.Color == nil {
		return StrokeInput{}, fmt.Errorf("%w: missing color", ErrInvalidStroke)
	}
	if w.Tool == nil {
		return StrokeInput{}, fmt.Errorf("%w: missing tool", ErrInvalidStroke)
	}
	if w.Size == nil {
		return StrokeInput{}, fmt.Errorf("%w: missing size", ErrInvalidStroke)
	}
	if !finite(*w.Size) || *w.Size <= 0 {
		return StrokeInput{}, fmt.Errorf("%w: size must be a positive number", ErrInvalidStroke)
	}

	return StrokeInput{
		X0:    *w.X0,
		Y0:    *w.Y0,
		X1:    *w.X1,
		Y1:    *w.Y1,
		Color: *w.Color,
		Size:  *w.Size,
		Tool:  *w.Tool,
		Kind:  kind,
	}, nil
}

// DecodeStrokeList parses a JSON array of already-stamped strokes, the
// trust boundary of the restore and sync endpoints: array-ness is enforced,
// element shapes are accepted as-is.
func DecodeStrokeList(raw []byte) ([]Stroke, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var list []Stroke
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	return list, nil
}

// checkInput guards the direct API path, where payloads arrive as structs
// and key-presence checks do not apply.
func checkInput(in StrokeInput) error {
	if in.Kind != KindDraw && in.Kind != KindErase {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidStroke, in.Kind)
	}
	for _, v := range []float64{in.X0, in.Y0, in.X1, in.Y1} {
		if !finite(v) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidStroke)
		}
	}
	if !finite(in.Size) || in.Size <= 0 {
		return fmt.Errorf("%w: size must be a positive number", ErrInvalidStroke)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
