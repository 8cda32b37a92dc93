package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	"lecture-notes/pkg/models"
)

var (
	notePrefix     = []byte("note/")
	preferencesKey = []byte("preferences")
)

type diskStore struct {
	db *badger.DB
}

// NewDiskStore opens a badger database under path.
func NewDiskStore(path string) (Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &diskStore{db: db}, nil
}

func noteKey(id string) []byte {
	return append(append([]byte{}, notePrefix...), id...)
}

func (s *diskStore) Save(ctx context.Context, note models.Note) (string, error) {
	note = prepareNote(note)
	data, err := json.Marshal(note)
	if err != nil {
		return "", fmt.Errorf("failed to marshal note: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(noteKey(note.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store note: %w", err)
	}
	return note.ID, nil
}

func (s *diskStore) Get(ctx context.Context, id string) (models.Note, error) {
	var note models.Note

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(noteKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &note)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to get note: %w", err)
	}

	return note, nil
}

func (s *diskStore) List(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = notePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var note models.Note
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &note)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			notes = append(notes, note)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	sortNewestFirst(notes)
	return notes, nil
}

func (s *diskStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(noteKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
			}
			return fmt.Errorf("failed to get note: %w", err)
		}
		return txn.Delete(noteKey(id))
	})
}

func (s *diskStore) LoadPreferences(ctx context.Context) (models.Preferences, error) {
	var prefs models.Preferences

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(preferencesKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &prefs)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Preferences{}, ErrPreferencesNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, nil
}

func (s *diskStore) SavePreferences(ctx context.Context, prefs models.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(preferencesKey, data)
	})
}

func (s *diskStore) Close() error {
	return s.db.Close()
}
