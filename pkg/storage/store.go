// Package storage persists finished notes, user preferences and recorded
// audio.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lecture-notes/pkg/models"
)

var (
	ErrNoteNotFound        = errors.New("note not found")
	ErrPreferencesNotFound = errors.New("preferences not saved")
)

// NoteStore keeps notes. List returns the newest note first.
type NoteStore interface {
	Save(ctx context.Context, note models.Note) (string, error)
	Get(ctx context.Context, id string) (models.Note, error)
	List(ctx context.Context) ([]models.Note, error)
	Delete(ctx context.Context, id string) error
}

// PreferenceStore keeps the single preferences record. Load returns
// ErrPreferencesNotFound until something was saved.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (models.Preferences, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error
}

type Store interface {
	NoteStore
	PreferenceStore
	Close() error
}

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Open opens the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger, "":
		return NewDiskStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func prepareNote(note models.Note) models.Note {
	if note.ID == "" {
		note.ID = models.NewNoteID()
	}
	return note
}

func sortNewestFirst(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
}
