package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lecture-notes/pkg/models"
)

const (
	simSampleRate     = 16000
	simBytesPerSample = 2
)

// SimulatedDevice stands in for a microphone. It writes silent 16 kHz mono
// PCM files sized to the requested intervals, so the rest of the pipeline
// handles real files.
type SimulatedDevice struct {
	Dir string

	// DenyPermission makes Start fail the way a refused microphone prompt does.
	DenyPermission bool

	mu      sync.Mutex
	timer   activeTimer
	running bool
	cuts    int
}

func NewSimulatedDevice(dir string) *SimulatedDevice {
	return &SimulatedDevice{Dir: dir}
}

func (d *SimulatedDevice) Start(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.DenyPermission {
		return models.AudioRef{}, ErrPermissionDenied
	}
	if d.running {
		return models.AudioRef{}, fmt.Errorf("%w: already recording", ErrDevice)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: create capture dir: %v", ErrDevice, err)
	}

	d.timer.start(0)
	d.running = true
	d.cuts = 0
	return models.AudioRef{URI: filepath.Join(d.Dir, "recording.pcm")}, nil
}

func (d *SimulatedDevice) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return fmt.Errorf("%w: not recording", ErrDevice)
	}
	d.timer.pause()
	return nil
}

func (d *SimulatedDevice) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return fmt.Errorf("%w: not recording", ErrDevice)
	}
	d.timer.resume()
	return nil
}

// Tap makes the simulated device non-interrupting.
func (d *SimulatedDevice) Tap(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	return d.Cut(ctx, from, to)
}

func (d *SimulatedDevice) Cut(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if to <= from {
		return models.AudioRef{}, fmt.Errorf("%w: empty interval %s-%s", ErrDevice, from, to)
	}
	d.cuts++
	path := filepath.Join(d.Dir, fmt.Sprintf("chunk_%03d_%d-%d.pcm", d.cuts, from.Milliseconds(), to.Milliseconds()))
	return writeSilence(path, to-from)
}

func (d *SimulatedDevice) Stop(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return models.AudioRef{}, fmt.Errorf("%w: not recording", ErrDevice)
	}
	d.running = false
	return writeSilence(filepath.Join(d.Dir, "recording.pcm"), d.timer.recorded())
}

func writeSilence(path string, length time.Duration) (models.AudioRef, error) {
	size := int64(length.Seconds() * simSampleRate * simBytesPerSample)
	f, err := os.Create(path)
	if err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: create %s: %v", ErrDevice, path, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: size %s: %v", ErrDevice, path, err)
	}
	return models.AudioRef{URI: path, Size: size, DurationSeconds: length.Seconds()}, nil
}
