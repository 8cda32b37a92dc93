// Package preferences holds the process-wide user settings. They are loaded
// from the store once and written back on every update.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/storage"
)

var ErrInvalidLearningStyle = errors.New("invalid learning style")

type Service struct {
	store  storage.PreferenceStore
	logger *log.Logger

	mu      sync.RWMutex
	current models.Preferences
}

// Load reads saved preferences, falling back to defaults when none exist.
func Load(ctx context.Context, store storage.PreferenceStore, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	prefs, err := store.LoadPreferences(ctx)
	switch {
	case errors.Is(err, storage.ErrPreferencesNotFound):
		prefs = models.DefaultPreferences()
		logger.Debug("No saved preferences, using defaults")
	case err != nil:
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return &Service{store: store, logger: logger, current: prefs}, nil
}

func (s *Service) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the current preferences and persists the
// result. Nothing changes if validation or the write fails.
func (s *Service) Update(ctx context.Context, fn func(*models.Preferences)) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if err := Validate(next); err != nil {
		return s.current, err
	}
	if err := s.store.SavePreferences(ctx, next); err != nil {
		return s.current, fmt.Errorf("save preferences: %w", err)
	}
	s.current = next
	s.logger.Info("Preferences updated", "dark_mode", next.DarkMode, "learning_style", next.LearningStyle)
	return next, nil
}

func Validate(p models.Preferences) error {
	switch p.LearningStyle {
	case models.LearningVisual, models.LearningAuditory, models.LearningKinesthetic:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidLearningStyle, p.LearningStyle)
}
