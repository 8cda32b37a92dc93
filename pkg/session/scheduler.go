package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/models"
)

// ChunkScheduler cuts the running recording into consecutive windows of a
// fixed length. The cursor only advances when a window was cut, so windows
// never overlap and never leave a gap.
type ChunkScheduler struct {
	interval time.Duration
	cursor   time.Duration
	seq      int
}

func NewChunkScheduler(interval time.Duration) *ChunkScheduler {
	return &ChunkScheduler{interval: interval}
}

// Due reports whether a full window has been recorded past the cursor.
func (s *ChunkScheduler) Due(elapsed time.Duration) bool {
	return elapsed >= s.cursor+s.interval
}

// Cursor is the end of the last window cut.
func (s *ChunkScheduler) Cursor() time.Duration {
	return s.cursor
}

// Next cuts the next full window from dev.
func (s *ChunkScheduler) Next(ctx context.Context, dev capture.Device) (*models.AudioChunk, error) {
	return s.cut(ctx, dev, s.cursor+s.interval, true)
}

// Tail cuts whatever was recorded past the cursor up to end. The device must
// already be paused; it is left paused.
func (s *ChunkScheduler) Tail(ctx context.Context, dev capture.Device, end time.Duration) (*models.AudioChunk, error) {
	return s.cut(ctx, dev, end, false)
}

// cut returns ErrChunkExtraction when no audio was taken, in which case the
// caller retries on the next tick. It returns a chunk together with
// ErrCaptureInterrupted when the window was cut but capture did not resume.
func (s *ChunkScheduler) cut(ctx context.Context, dev capture.Device, to time.Duration, live bool) (*models.AudioChunk, error) {
	from := s.cursor

	var (
		ref       models.AudioRef
		err       error
		resumeErr error
	)
	if tap, ok := dev.(capture.Tapper); ok && live {
		ref, err = tap.Tap(ctx, from, to)
	} else if live {
		if perr := dev.Pause(ctx); perr != nil {
			return nil, fmt.Errorf("%w: pause: %v", ErrChunkExtraction, perr)
		}
		ref, err = dev.Cut(ctx, from, to)
		resumeErr = dev.Resume(ctx)
	} else {
		ref, err = dev.Cut(ctx, from, to)
	}

	if err != nil {
		err = fmt.Errorf("%w: %s-%s: %v", ErrChunkExtraction, from, to, err)
		if resumeErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %v", ErrCaptureInterrupted, resumeErr))
		}
		return nil, err
	}

	s.cursor = to
	s.seq++
	chunk := &models.AudioChunk{
		SequenceNumber:     s.seq,
		StartOffsetSeconds: from.Seconds(),
		DurationSeconds:    (to - from).Seconds(),
		Audio:              ref,
		TranscriptionState: models.TranscriptionPending,
	}
	if resumeErr != nil {
		return chunk, fmt.Errorf("%w: %v", ErrCaptureInterrupted, resumeErr)
	}
	return chunk, nil
}
