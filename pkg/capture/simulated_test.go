package capture

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestSimulatedDeviceCut(t *testing.T) {
	ctx := context.Background()
	dev := NewSimulatedDevice(t.TempDir())

	if _, err := dev.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	ref, err := dev.Tap(ctx, 0, 15*time.Second)
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if ref.Size != 15*simSampleRate*simBytesPerSample {
		t.Errorf("size = %d, want %d", ref.Size, 15*simSampleRate*simBytesPerSample)
	}
	info, err := os.Stat(ref.URI)
	if err != nil {
		t.Fatalf("stat chunk: %v", err)
	}
	if info.Size() != ref.Size {
		t.Errorf("file size = %d, want %d", info.Size(), ref.Size)
	}

	if _, err := dev.Cut(ctx, 15*time.Second, 15*time.Second); !errors.Is(err, ErrDevice) {
		t.Errorf("empty cut error = %v, want ErrDevice", err)
	}

	final, err := dev.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := os.Stat(final.URI); err != nil {
		t.Errorf("final recording missing: %v", err)
	}
	if err := dev.Pause(ctx); !errors.Is(err, ErrDevice) {
		t.Errorf("pause after stop = %v, want ErrDevice", err)
	}
}

func TestSimulatedDevicePermissionDenied(t *testing.T) {
	dev := NewSimulatedDevice(t.TempDir())
	dev.DenyPermission = true

	if _, err := dev.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("start error = %v, want ErrPermissionDenied", err)
	}
}

func TestSimulatedDeviceExcludesPausedTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	dev := NewSimulatedDevice(t.TempDir())
	dev.timer.now = func() time.Time { return now }

	if _, err := dev.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	now = now.Add(10 * time.Second)
	if err := dev.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	now = now.Add(time.Minute)
	if err := dev.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	now = now.Add(5 * time.Second)

	final, err := dev.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if final.DurationSeconds != 15 {
		t.Errorf("duration = %v, want 15", final.DurationSeconds)
	}
	if want := int64(15 * simSampleRate * simBytesPerSample); final.Size != want {
		t.Errorf("size = %d, want %d", final.Size, want)
	}
}
