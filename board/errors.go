// CLAUDE:SUMMARY Sentinel errors for the board service: closed service, invalid stroke payload, non-array upload.
package board

import "errors"

var (
	// ErrClosed is returned when an operation reaches a stopped service.
	ErrClosed = errors.New("board: service closed")

	// ErrInvalidStroke marks a stroke payload missing required coordinates
	// or carrying non-finite numbers. Callers on the event channel drop
	// these silently; the sentinel exists for direct API users and tests.
	ErrInvalidStroke = errors.New("board: invalid stroke")

	// ErrNotArray rejects restore and sync bodies whose payload is not a
	// JSON array. The API layer maps it to a 400.
	ErrNotArray = errors.New("board: payload is not an array")
)
