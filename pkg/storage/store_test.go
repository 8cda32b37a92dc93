package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lecture-notes/pkg/models"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	disk, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	lite, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	stores := map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendBadger: disk,
		BackendSQLite: lite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func sampleNote(id, title string, created time.Time) models.Note {
	seq := 1
	return models.Note{
		ID:              id,
		Title:           title,
		Emoji:           "🎙️",
		CreatedAt:       created,
		DurationSeconds: 32,
		Tags:            []string{"Recording", "Exam Prep"},
		SummaryText:     "Cells divide.",
		KeyPoints:       []string{"Mitosis has four phases"},
		KeySegments: []models.KeySegment{
			{Name: "Key Point 1", SegmentID: 1, Text: "chunk 1", TimestampLabel: "00:00"},
		},
		FullTranscript: []models.TranscriptSegment{
			{ID: 1, SourceChunk: &seq, Text: "chunk 1", TimestampLabel: "00:00", IsKeyPoint: true},
			{ID: 2, OffsetSeconds: 16, TimestampLabel: "00:16", IsChapterMarker: true, Title: "Mitosis", Emoji: "🔬"},
		},
		Audio: models.AudioRef{URI: "/tmp/rec.wav", Size: 2048, DurationSeconds: 32},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleNote("n1", "Biology", created)
			id, err := s.Save(ctx, want)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if id != "n1" {
				t.Errorf("id = %q, want n1", id)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Title != want.Title || !got.CreatedAt.Equal(want.CreatedAt) || got.DurationSeconds != 32 {
				t.Errorf("got %q at %v (%vs)", got.Title, got.CreatedAt, got.DurationSeconds)
			}
			if len(got.Tags) != 2 || got.Tags[1] != "Exam Prep" {
				t.Errorf("tags = %v", got.Tags)
			}
			if len(got.FullTranscript) != 2 || !got.FullTranscript[1].IsChapterMarker {
				t.Fatalf("transcript = %+v", got.FullTranscript)
			}
			if src := got.FullTranscript[0].SourceChunk; src == nil || *src != 1 {
				t.Errorf("source chunk = %v, want 1", src)
			}
			if got.Audio.URI != want.Audio.URI || got.KeySegments[0].Name != "Key Point 1" {
				t.Errorf("audio = %+v, key segments = %+v", got.Audio, got.KeySegments)
			}
			if got.Image != nil {
				t.Errorf("image = %+v, want none", got.Image)
			}

			board := sampleNote("n2", "Whiteboard Analysis", created)
			board.Image = &models.ImageRef{URI: "/tmp/board.png", Size: 512, ContentType: "image/png"}
			if _, err := s.Save(ctx, board); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err = s.Get(ctx, "n2")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Image == nil || *got.Image != *board.Image {
				t.Errorf("image = %+v, want %+v", got.Image, board.Image)
			}
		})
	}
}

func TestStoreAssignsID(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Save(ctx, sampleNote("", "Untitled", time.Now()))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if id == "" {
				t.Fatal("empty id")
			}
			if _, err := s.Get(ctx, id); err != nil {
				t.Errorf("Get(%s): %v", id, err)
			}
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i, title := range []string{"first", "second", "third"} {
				note := sampleNote(title, title, base.Add(time.Duration(i)*time.Hour))
				if _, err := s.Save(ctx, note); err != nil {
					t.Fatalf("Save: %v", err)
				}
			}
			notes, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(notes) != 3 {
				t.Fatalf("got %d notes, want 3", len(notes))
			}
			for i, want := range []string{"third", "second", "first"} {
				if notes[i].Title != want {
					t.Errorf("notes[%d] = %q, want %q", i, notes[i].Title, want)
				}
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Save(ctx, sampleNote("gone", "Gone", time.Now())); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := s.Delete(ctx, "gone"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrNoteNotFound) {
				t.Errorf("Get after delete error = %v, want ErrNoteNotFound", err)
			}
			if err := s.Delete(ctx, "gone"); !errors.Is(err, ErrNoteNotFound) {
				t.Errorf("second Delete error = %v, want ErrNoteNotFound", err)
			}
		})
	}
}

func TestStorePreferences(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.LoadPreferences(ctx); !errors.Is(err, ErrPreferencesNotFound) {
				t.Fatalf("LoadPreferences error = %v, want ErrPreferencesNotFound", err)
			}
			want := models.Preferences{DarkMode: true, OfflineAccess: true, LearningStyle: models.LearningAuditory}
			if err := s.SavePreferences(ctx, want); err != nil {
				t.Fatalf("SavePreferences: %v", err)
			}
			want.Notifications = true
			if err := s.SavePreferences(ctx, want); err != nil {
				t.Fatalf("SavePreferences: %v", err)
			}
			got, err := s.LoadPreferences(ctx)
			if err != nil {
				t.Fatalf("LoadPreferences: %v", err)
			}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestDiskStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if _, err := s.Save(ctx, sampleNote("kept", "Kept", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewDiskStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, "kept"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("postgres", t.TempDir()); err == nil {
		t.Error("Open(postgres) succeeded")
	}
}

func TestFileAudioStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "capture", "recording.wav")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, make([]byte, 512), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewFileAudioStore(filepath.Join(dir, "audio"))
	ref, err := s.Persist(ctx, "sess-1", models.AudioRef{URI: src})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if want := filepath.Join(dir, "audio", "sess-1.wav"); ref.URI != want {
		t.Errorf("uri = %q, want %q", ref.URI, want)
	}
	if ref.Size != 512 {
		t.Errorf("size = %d, want 512", ref.Size)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("source still present: %v", err)
	}

	if err := s.Release(ctx, ref, models.AudioRef{URI: filepath.Join(dir, "missing.wav")}); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(ref.URI); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("released file still present: %v", err)
	}
}
