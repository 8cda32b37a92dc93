package session

import (
	"errors"
	"testing"

	"lecture-notes/pkg/models"
)

func chunkAt(seq int, offset float64) models.AudioChunk {
	return models.AudioChunk{SequenceNumber: seq, StartOffsetSeconds: offset, DurationSeconds: 15}
}

func TestTranscriptInsertsOutOfOrderChunks(t *testing.T) {
	tr := NewTranscript()
	third := tr.AppendFromChunk(chunkAt(3, 30), "three")
	first := tr.AppendFromChunk(chunkAt(1, 0), "one")
	second := tr.AppendFromChunk(chunkAt(2, 15), "two")

	segs := tr.Segments()
	want := []string{"one", "two", "three"}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i, w := range want {
		if segs[i].Text != w {
			t.Errorf("segment %d = %q, want %q", i, segs[i].Text, w)
		}
	}

	// Ids reflect creation order and are never renumbered.
	if third.ID != 1 || first.ID != 2 || second.ID != 3 {
		t.Errorf("ids = %d, %d, %d; want 1, 2, 3", third.ID, first.ID, second.ID)
	}
	if segs[2].ID != third.ID {
		t.Errorf("last segment id = %d, want %d", segs[2].ID, third.ID)
	}
	if segs[1].TimestampLabel != "00:15" {
		t.Errorf("label = %q, want 00:15", segs[1].TimestampLabel)
	}
}

func TestTranscriptChapterMarkersAreIdempotent(t *testing.T) {
	tr := NewTranscript()
	tr.AppendFromChunk(chunkAt(1, 0), "one")
	tr.AppendFromChunk(chunkAt(2, 15), "two")
	tr.AppendFromChunk(chunkAt(3, 30), "three")

	chapters := []models.Chapter{
		{Title: "Basics", Emoji: "📚", Position: 0},
		{Title: "Middle", Emoji: "🧠", Position: 0.4},
		{Title: "End", Emoji: "🏁", Position: 0.9},
	}
	tr.InsertChapterMarkers(chapters, 45)
	tr.InsertChapterMarkers(chapters, 45)

	segs := tr.Segments()
	if len(segs) != 6 {
		t.Fatalf("got %d entries, want 6", len(segs))
	}
	wantOrder := []string{"Basics", "one", "two", "Middle", "three", "End"}
	for i, seg := range segs {
		got := seg.Text
		if seg.IsChapterMarker {
			got = seg.Title
			if seg.SourceChunk != nil {
				t.Errorf("marker %q has a source chunk", seg.Title)
			}
		}
		if got != wantOrder[i] {
			t.Errorf("entry %d = %q, want %q", i, got, wantOrder[i])
		}
	}
	if segs[3].OffsetSeconds != 18 {
		t.Errorf("Middle marker offset = %v, want 18", segs[3].OffsetSeconds)
	}
	if tr.SpokenCount() != 3 {
		t.Errorf("spoken count = %d, want 3", tr.SpokenCount())
	}

	tr.InsertChapterMarkers(nil, 45)
	if got := len(tr.Segments()); got != 3 {
		t.Errorf("got %d entries after clearing markers, want 3", got)
	}
}

func TestTranscriptToggles(t *testing.T) {
	tr := NewTranscript()
	seg := tr.AppendFromChunk(chunkAt(1, 0), "one")
	markers := tr.InsertChapterMarkers([]models.Chapter{{Title: "Intro", Position: 0}}, 15)

	got, changed, err := tr.ToggleHighlight(seg.ID)
	if err != nil || !changed || !got.IsHighlighted {
		t.Fatalf("ToggleHighlight = %+v, %v, %v", got, changed, err)
	}
	got, _, _ = tr.ToggleHighlight(seg.ID)
	if got.IsHighlighted {
		t.Errorf("second toggle left segment highlighted")
	}

	got, changed, err = tr.ToggleKeyPoint(markers[0].ID)
	if err != nil {
		t.Fatalf("ToggleKeyPoint(marker): %v", err)
	}
	if changed || got.IsKeyPoint {
		t.Errorf("marker was annotated: %+v", got)
	}
	if _, _, err := tr.ToggleHighlight(markers[0].ID); err != nil {
		t.Errorf("ToggleHighlight(marker): %v", err)
	}

	if _, _, err := tr.ToggleKeyPoint(42); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("ToggleKeyPoint(42) error = %v, want ErrSegmentNotFound", err)
	}
}

func TestTranscriptKeySegments(t *testing.T) {
	tr := NewTranscript()
	a := tr.AppendFromChunk(chunkAt(1, 0), "one")
	tr.AppendFromChunk(chunkAt(2, 15), "two")
	c := tr.AppendFromChunk(chunkAt(3, 30), "three")
	tr.ToggleKeyPoint(c.ID)
	tr.ToggleKeyPoint(a.ID)

	keys := tr.KeySegments()
	if len(keys) != 2 {
		t.Fatalf("got %d key segments, want 2", len(keys))
	}
	if keys[0].Name != "Key Point 1" || keys[0].SegmentID != a.ID {
		t.Errorf("first key segment = %+v", keys[0])
	}
	if keys[1].Name != "Key Point 2" || keys[1].TimestampLabel != "00:30" {
		t.Errorf("second key segment = %+v", keys[1])
	}
}

func TestTranscriptText(t *testing.T) {
	tr := NewTranscript()
	tr.AppendFromChunk(chunkAt(1, 0), "one")
	tr.InsertChapterMarkers([]models.Chapter{{Title: "Intro", Position: 0}}, 15)
	tr.AppendFromChunk(chunkAt(2, 15), "two")

	want := "[00:00] one\n[00:15] two\n"
	if got := tr.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
