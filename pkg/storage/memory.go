package storage

import (
	"context"
	"fmt"
	"sync"

	"lecture-notes/pkg/models"
)

type memoryStore struct {
	notes map[string]models.Note
	prefs *models.Preferences
	mu    sync.RWMutex
}

// NewMemoryStore returns a store that lives as long as the process.
func NewMemoryStore() Store {
	return &memoryStore{
		notes: make(map[string]models.Note),
	}
}

func (s *memoryStore) Save(ctx context.Context, note models.Note) (string, error) {
	note = prepareNote(note)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = note
	return note.ID, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, exists := s.notes[id]
	if !exists {
		return models.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	return note, nil
}

func (s *memoryStore) List(ctx context.Context) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]models.Note, 0, len(s.notes))
	for _, note := range s.notes {
		notes = append(notes, note)
	}
	sortNewestFirst(notes)
	return notes, nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notes[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	delete(s.notes, id)
	return nil
}

func (s *memoryStore) LoadPreferences(ctx context.Context) (models.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prefs == nil {
		return models.Preferences{}, ErrPreferencesNotFound
	}
	return *s.prefs, nil
}

func (s *memoryStore) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = &prefs
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
