//go:build unix

package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"lecture-notes/pkg/models"
)

// startupWait is how long Start waits for ffmpeg to fail on a bad device or
// a refused permission before assuming capture is running.
const startupWait = 500 * time.Millisecond

// FFmpegDevice records the microphone with an ffmpeg child process. Pausing
// stops the process with SIGSTOP so the output file does not advance.
// Offsets passed to Cut count from the moment Start returned; the audio
// captured during the startup wait is skipped.
type FFmpegDevice struct {
	InputFormat string // e.g. avfoundation, pulse, alsa
	InputDevice string // e.g. ":default", "default"
	Dir         string
	SampleRate  int

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	exited  chan error
	path    string
	lead    time.Duration // audio written before Start returned
	timer   activeTimer
	cuts    int
}

func NewFFmpegDevice(inputFormat, inputDevice, dir string) *FFmpegDevice {
	return &FFmpegDevice{
		InputFormat: inputFormat,
		InputDevice: inputDevice,
		Dir:         dir,
		SampleRate:  16000,
	}
}

func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found in PATH", ErrDevice)
	}
	return nil
}

func (d *FFmpegDevice) Start(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return models.AudioRef{}, fmt.Errorf("%w: already recording", ErrDevice)
	}
	if err := CheckFFmpeg(); err != nil {
		return models.AudioRef{}, err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: create capture dir: %v", ErrDevice, err)
	}

	d.path = filepath.Join(d.Dir, "recording.wav")
	cmd := exec.Command("ffmpeg",
		"-f", d.InputFormat,
		"-i", d.InputDevice,
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		"-y",
		d.path,
	)
	d.stderr = &bytes.Buffer{}
	cmd.Stderr = d.stderr
	launched := time.Now()
	if err := cmd.Start(); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: start ffmpeg: %v", ErrDevice, err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return models.AudioRef{}, classifyStartFailure(d.stderr.String(), err)
	case <-time.After(startupWait):
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return models.AudioRef{}, ctx.Err()
	}

	d.cmd = cmd
	d.exited = exited
	d.lead = time.Since(launched)
	d.timer.start(d.lead)
	d.cuts = 0
	return models.AudioRef{URI: d.path}, nil
}

func classifyStartFailure(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "not authorized") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, lastLine(stderr))
	}
	return fmt.Errorf("%w: ffmpeg exited: %v: %s", ErrDevice, err, lastLine(stderr))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func (d *FFmpegDevice) signal(sig syscall.Signal, then func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil {
		return fmt.Errorf("%w: not recording", ErrDevice)
	}
	if err := d.cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("%w: signal %s: %v", ErrDevice, sig, err)
	}
	then()
	return nil
}

func (d *FFmpegDevice) Pause(ctx context.Context) error {
	return d.signal(syscall.SIGSTOP, d.timer.pause)
}

func (d *FFmpegDevice) Resume(ctx context.Context) error {
	return d.signal(syscall.SIGCONT, d.timer.resume)
}

func (d *FFmpegDevice) Cut(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	d.mu.Lock()
	d.cuts++
	src := d.path
	lead := d.lead
	out := filepath.Join(d.Dir, fmt.Sprintf("chunk_%03d.wav", d.cuts))
	d.mu.Unlock()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", formatSeconds(lead+from),
		"-t", formatSeconds(to-from),
		"-i", src,
		"-y",
		out,
	)
	if combined, err := cmd.CombinedOutput(); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: cut %s-%s: %v: %s", ErrDevice, from, to, err, lastLine(string(combined)))
	}
	return fileRef(out, to-from)
}

func (d *FFmpegDevice) Stop(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil {
		return models.AudioRef{}, fmt.Errorf("%w: not recording", ErrDevice)
	}

	// A stopped process cannot handle SIGINT.
	_ = d.cmd.Process.Signal(syscall.SIGCONT)
	if err := d.cmd.Process.Signal(os.Interrupt); err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: interrupt ffmpeg: %v", ErrDevice, err)
	}

	select {
	case <-d.exited:
	case <-time.After(5 * time.Second):
		_ = d.cmd.Process.Kill()
		<-d.exited
	}
	d.cmd = nil
	d.timer.pause()
	return fileRef(d.path, d.timer.recorded())
}

func fileRef(path string, length time.Duration) (models.AudioRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.AudioRef{}, fmt.Errorf("%w: stat %s: %v", ErrDevice, path, err)
	}
	return models.AudioRef{URI: path, Size: info.Size(), DurationSeconds: length.Seconds()}, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
