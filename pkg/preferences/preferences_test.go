package preferences

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/models"
	"lecture-notes/pkg/storage"
)

type failingStore struct {
	storage.Store
}

func (failingStore) SavePreferences(context.Context, models.Preferences) error {
	return errors.New("read-only")
}

func TestLoadDefaults(t *testing.T) {
	svc, err := Load(context.Background(), storage.NewMemoryStore(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := svc.Get(); got != models.DefaultPreferences() {
		t.Errorf("got %+v, want defaults", got)
	}
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	svc, err := Load(ctx, store, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := svc.Update(ctx, func(p *models.Preferences) {
		p.DarkMode = true
		p.LearningStyle = models.LearningKinesthetic
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.DarkMode || got.LearningStyle != models.LearningKinesthetic {
		t.Errorf("got %+v", got)
	}

	reloaded, err := Load(ctx, store, log.New(io.Discard))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Get() != got {
		t.Errorf("reloaded %+v, want %+v", reloaded.Get(), got)
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := Load(ctx, storage.NewMemoryStore(), log.New(io.Discard))

	_, err := svc.Update(ctx, func(p *models.Preferences) { p.LearningStyle = "osmosis" })
	if !errors.Is(err, ErrInvalidLearningStyle) {
		t.Fatalf("error = %v, want ErrInvalidLearningStyle", err)
	}
	if got := svc.Get().LearningStyle; got != models.LearningVisual {
		t.Errorf("learning style = %q after rejected update", got)
	}
}

func TestUpdateKeepsStateOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	svc, _ := Load(ctx, failingStore{storage.NewMemoryStore()}, log.New(io.Discard))

	if _, err := svc.Update(ctx, func(p *models.Preferences) { p.DarkMode = true }); err == nil {
		t.Fatal("Update succeeded on a failing store")
	}
	if svc.Get().DarkMode {
		t.Error("dark mode applied although the write failed")
	}
}
