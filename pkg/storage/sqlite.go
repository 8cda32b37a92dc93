package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lecture-notes/pkg/models"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		createdAt INTEGER NOT NULL,
		durationSeconds REAL NOT NULL,
		summaryText TEXT NOT NULL DEFAULT '',
		audioURI TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS notes_createdAt ON notes(createdAt DESC);

	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		darkMode INTEGER NOT NULL,
		notifications INTEGER NOT NULL,
		offlineAccess INTEGER NOT NULL,
		learningStyle TEXT NOT NULL
	);
`

// noteBody holds the nested parts of a note, stored as JSON.
type noteBody struct {
	Tags           []string                   `json:"tags"`
	KeyPoints      []string                   `json:"key_points"`
	KeySegments    []models.KeySegment        `json:"key_segments"`
	FullTranscript []models.TranscriptSegment `json:"full_transcript"`
	Audio          models.AudioRef            `json:"audio"`
	Image          *models.ImageRef           `json:"image,omitempty"`
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) notes.sqlite under dir.
func NewSQLiteStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	path := filepath.Join(dir, "notes.sqlite")
	return OpenSQLite(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
}

// OpenSQLite opens the database at dsn and applies the schema.
func OpenSQLite(dsn string) (Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Save(ctx context.Context, note models.Note) (string, error) {
	note = prepareNote(note)
	body, err := json.Marshal(noteBody{
		Tags:           note.Tags,
		KeyPoints:      note.KeyPoints,
		KeySegments:    note.KeySegments,
		FullTranscript: note.FullTranscript,
		Audio:          note.Audio,
		Image:          note.Image,
	})
	if err != nil {
		return "", fmt.Errorf("marshal note: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, emoji, createdAt, durationSeconds, summaryText, audioURI, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			emoji = excluded.emoji,
			createdAt = excluded.createdAt,
			durationSeconds = excluded.durationSeconds,
			summaryText = excluded.summaryText,
			audioURI = excluded.audioURI,
			body = excluded.body
	`, note.ID, note.Title, note.Emoji, note.CreatedAt.UnixNano(), note.DurationSeconds,
		note.SummaryText, note.Audio.URI, string(body))
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	return note.ID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (models.Note, error) {
	var (
		n         models.Note
		createdAt int64
		audioURI  string
		body      string
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Emoji, &createdAt, &n.DurationSeconds,
		&n.SummaryText, &audioURI, &body); err != nil {
		return models.Note{}, err
	}
	n.CreatedAt = time.Unix(0, createdAt).UTC()

	var b noteBody
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		return models.Note{}, fmt.Errorf("decode note %s: %w", n.ID, err)
	}
	n.Tags = b.Tags
	n.KeyPoints = b.KeyPoints
	n.KeySegments = b.KeySegments
	n.FullTranscript = b.FullTranscript
	n.Audio = b.Audio
	n.Image = b.Image
	if n.Audio.URI == "" {
		n.Audio.URI = audioURI
	}
	return n, nil
}

const noteColumns = `id, title, emoji, createdAt, durationSeconds, summaryText, audioURI, body`

func (s *sqliteStore) Get(ctx context.Context, id string) (models.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("scan note: %w", err)
	}
	return note, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		ORDER BY createdAt DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	return nil
}

func (s *sqliteStore) LoadPreferences(ctx context.Context) (models.Preferences, error) {
	var p models.Preferences
	err := s.db.QueryRowContext(ctx, `
		SELECT darkMode, notifications, offlineAccess, learningStyle
		FROM preferences WHERE id = 1
	`).Scan(&p.DarkMode, &p.Notifications, &p.OfflineAccess, &p.LearningStyle)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Preferences{}, ErrPreferencesNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("scan preferences: %w", err)
	}
	return p, nil
}

func (s *sqliteStore) SavePreferences(ctx context.Context, p models.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (id, darkMode, notifications, offlineAccess, learningStyle)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			darkMode = excluded.darkMode,
			notifications = excluded.notifications,
			offlineAccess = excluded.offlineAccess,
			learningStyle = excluded.learningStyle
	`, p.DarkMode, p.Notifications, p.OfflineAccess, p.LearningStyle)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
