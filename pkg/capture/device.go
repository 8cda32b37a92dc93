// Package capture provides microphone capture devices for recording sessions.
package capture

import (
	"context"
	"errors"
	"time"

	"lecture-notes/pkg/models"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDevice           = errors.New("capture device error")
)

// Device is a microphone recording that can be paused, resumed and cut into
// bounded slices while it runs.
type Device interface {
	Start(ctx context.Context) (models.AudioRef, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Stop finalizes the recording and returns the full-length artifact.
	Stop(ctx context.Context) (models.AudioRef, error)
	// Cut copies the recorded interval [from, to) into a new artifact. The
	// recording must be paused or stopped.
	Cut(ctx context.Context, from, to time.Duration) (models.AudioRef, error)
}

// Tapper is implemented by devices that can read a recorded interval without
// interrupting capture.
type Tapper interface {
	Tap(ctx context.Context, from, to time.Duration) (models.AudioRef, error)
}

// activeTimer measures how long a device has been capturing, leaving out
// the time it spent paused. Callers hold the device lock.
type activeTimer struct {
	now    func() time.Time
	active time.Duration // captured time up to since
	since  time.Time     // zero while paused
}

func (t *activeTimer) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// start resets the timer. lead is audio already captured before the call.
func (t *activeTimer) start(lead time.Duration) {
	t.active = lead
	t.since = t.clock()
}

func (t *activeTimer) pause() {
	t.active = t.recorded()
	t.since = time.Time{}
}

func (t *activeTimer) resume() {
	if t.since.IsZero() {
		t.since = t.clock()
	}
}

func (t *activeTimer) recorded() time.Duration {
	if t.since.IsZero() {
		return t.active
	}
	return t.active + t.clock().Sub(t.since)
}
