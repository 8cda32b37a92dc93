package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/storage"
	"lecture-notes/pkg/whiteboard"
)

// withTestEnv points every directory the commands touch at a temp dir and
// returns the storage path.
func withTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	t.Setenv("LECTURENOTES_STORAGE_BACKEND", storage.BackendSQLite)
	t.Setenv("LECTURENOTES_STORAGE_PATH", data)
	t.Setenv("LECTURENOTES_STORAGE_AUDIO_DIR", filepath.Join(data, "audio"))
	t.Setenv("LECTURENOTES_STORAGE_IMAGE_DIR", filepath.Join(data, "images"))
	t.Setenv("LECTURENOTES_CAPTURE_DIR", filepath.Join(dir, "capture"))
	t.Setenv("LECTURENOTES_AI_PROVIDER", "simulated")
	t.Setenv("LECTURENOTES_AI_SIMULATED_DELAY", "0s")
	t.Setenv("LECTURENOTES_CAPTURE_DEVICE", "simulated")
	t.Setenv("LECTURENOTES_LOG_LEVEL", "error")
	return data
}

func run(t *testing.T, args ...string) {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
}

func TestSetter(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(models.Preferences) bool
	}{
		{"dark_mode", "true", false, func(p models.Preferences) bool { return p.DarkMode }},
		{"notifications", "false", false, func(p models.Preferences) bool { return !p.Notifications }},
		{"offline_access", "0", false, func(p models.Preferences) bool { return !p.OfflineAccess }},
		{"learning_style", "auditory", false, func(p models.Preferences) bool { return p.LearningStyle == models.LearningAuditory }},
		{"dark_mode", "maybe", true, nil},
		{"font_size", "true", true, nil},
	}
	for _, tt := range tests {
		apply, err := setter(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("setter(%s, %s) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		p := models.DefaultPreferences()
		apply(&p)
		if !tt.check(p) {
			t.Errorf("setter(%s, %s) gave %+v", tt.key, tt.value, p)
		}
	}
}

func TestPrefsSetPersists(t *testing.T) {
	data := withTestEnv(t)

	run(t, "prefs", "set", "learning_style", "kinesthetic")
	run(t, "prefs", "set", "dark_mode", "true")

	store, err := storage.NewSQLiteStore(data)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.LoadPreferences(context.Background())
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !got.DarkMode || got.LearningStyle != models.LearningKinesthetic || !got.Notifications {
		t.Errorf("stored = %+v", got)
	}
}

func TestPrefsSetRejectsInvalidStyle(t *testing.T) {
	withTestEnv(t)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"prefs", "set", "learning_style", "telepathic"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRecordSavesNote(t *testing.T) {
	data := withTestEnv(t)

	run(t, "record", "--duration", "50ms", "--title", "Demo", "--tags", "Exam Prep")

	store, err := storage.NewSQLiteStore(data)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	notes, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	n := notes[0]
	if n.Title != "Demo" || !n.HasTag("Exam Prep") || !n.HasTag("Recording") {
		t.Errorf("note = %q %v", n.Title, n.Tags)
	}
	if n.SummaryText != "" {
		t.Errorf("summary = %q, want none for an empty recording", n.SummaryText)
	}

	run(t, "notes", "ls", "--filter", "exam")
	run(t, "notes", "show", n.ID)
	run(t, "notes", "rm", n.ID)
	if _, err := store.Get(context.Background(), n.ID); err == nil {
		t.Error("note still present after rm")
	}
}

func TestWhiteboardSavesNote(t *testing.T) {
	data := withTestEnv(t)
	photo := filepath.Join(t.TempDir(), "board.png")
	if err := os.WriteFile(photo, []byte("\x89PNG\r\n\x1a\n0000IHDR"), 0o644); err != nil {
		t.Fatal(err)
	}

	run(t, "whiteboard", photo, "--tags", "Biology")

	store, err := storage.NewSQLiteStore(data)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	notes, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	n := notes[0]
	if n.Title != whiteboard.DefaultTitle || n.Tags[0] != whiteboard.Tag || !n.HasTag("Biology") {
		t.Errorf("note = %q %v", n.Title, n.Tags)
	}
	if n.Image == nil {
		t.Fatal("note has no image")
	}
	if _, err := os.Stat(n.Image.URI); err != nil {
		t.Errorf("image not stored: %v", err)
	}
}
