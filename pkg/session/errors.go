package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrValidation         = errors.New("validation error")
	ErrCaptureInterrupted = errors.New("capture interrupted")
	ErrChunkExtraction    = errors.New("chunk extraction failed")
	ErrDiscarded          = errors.New("session discarded")
	ErrSegmentNotFound    = errors.New("segment not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionActive      = errors.New("a recording is already in progress")
)

// Error carries the session and chunk a failure belongs to, so callers can
// offer a manual retry. Chunk is zero when the failure is not chunk-scoped.
type Error struct {
	Op        string
	SessionID string
	Chunk     int
	Err       error
}

func (e *Error) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("%s: session %s chunk %d: %v", e.Op, e.SessionID, e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s: session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
