//go:build !unix

package capture

import (
	"context"
	"fmt"
	"time"

	"lecture-notes/pkg/models"
)

// FFmpegDevice needs job-control signals to pause ffmpeg; on this platform
// every call fails with ErrDevice.
type FFmpegDevice struct {
	InputFormat string
	InputDevice string
	Dir         string
	SampleRate  int
}

func NewFFmpegDevice(inputFormat, inputDevice, dir string) *FFmpegDevice {
	return &FFmpegDevice{InputFormat: inputFormat, InputDevice: inputDevice, Dir: dir, SampleRate: 16000}
}

func CheckFFmpeg() error {
	return fmt.Errorf("%w: ffmpeg capture is not supported on this platform", ErrDevice)
}

func (d *FFmpegDevice) Start(ctx context.Context) (models.AudioRef, error) {
	return models.AudioRef{}, CheckFFmpeg()
}

func (d *FFmpegDevice) Pause(ctx context.Context) error  { return CheckFFmpeg() }
func (d *FFmpegDevice) Resume(ctx context.Context) error { return CheckFFmpeg() }

func (d *FFmpegDevice) Stop(ctx context.Context) (models.AudioRef, error) {
	return models.AudioRef{}, CheckFFmpeg()
}

func (d *FFmpegDevice) Cut(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	return models.AudioRef{}, CheckFFmpeg()
}
