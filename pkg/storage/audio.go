package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lecture-notes/pkg/models"
)

// FileAudioStore keeps finalized recordings in a directory, one file per
// session.
type FileAudioStore struct {
	Dir string
}

func NewFileAudioStore(dir string) *FileAudioStore {
	return &FileAudioStore{Dir: dir}
}

// Persist moves the recording into the store.
func (s *FileAudioStore) Persist(ctx context.Context, sessionID string, ref models.AudioRef) (models.AudioRef, error) {
	if ref.IsZero() {
		return ref, fmt.Errorf("persist recording: empty reference")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return ref, fmt.Errorf("failed to create audio directory: %w", err)
	}

	dst := filepath.Join(s.Dir, sessionID+filepath.Ext(ref.URI))
	if err := moveFile(ref.URI, dst); err != nil {
		return ref, fmt.Errorf("persist recording: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return ref, fmt.Errorf("persist recording: %w", err)
	}
	ref.URI = dst
	ref.Size = info.Size()
	return ref, nil
}

// Release deletes the given artifacts. Missing files are not an error.
func (s *FileAudioStore) Release(ctx context.Context, refs ...models.AudioRef) error {
	var errs []error
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		if err := os.Remove(ref.URI); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Rename fails across file systems; fall back to copying.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
