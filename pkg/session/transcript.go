package session

import (
	"sort"
	"strings"

	"lecture-notes/pkg/models"
)

// Transcript is the ordered segment log of one session. Segments are kept in
// offset order; a chunk transcribed late is inserted at its position rather
// than appended.
type Transcript struct {
	segments []*models.TranscriptSegment
	nextID   int
}

func NewTranscript() *Transcript {
	return &Transcript{nextID: 1}
}

func (t *Transcript) newID() int {
	id := t.nextID
	t.nextID++
	return id
}

// AppendFromChunk adds the transcribed text of chunk.
func (t *Transcript) AppendFromChunk(chunk models.AudioChunk, text string) models.TranscriptSegment {
	seq := chunk.SequenceNumber
	seg := &models.TranscriptSegment{
		ID:             t.newID(),
		SourceChunk:    &seq,
		Text:           text,
		OffsetSeconds:  chunk.StartOffsetSeconds,
		TimestampLabel: models.FormatTimestamp(chunk.StartOffsetSeconds),
	}

	// After every segment with a lower or equal offset, before markers and
	// segments that come later in the recording.
	i := sort.Search(len(t.segments), func(i int) bool {
		s := t.segments[i]
		if s.OffsetSeconds != seg.OffsetSeconds {
			return s.OffsetSeconds > seg.OffsetSeconds
		}
		return !s.IsChapterMarker && *s.SourceChunk > seq
	})
	t.insert(i, seg)
	return *seg
}

func (t *Transcript) insert(i int, seg *models.TranscriptSegment) {
	t.segments = append(t.segments, nil)
	copy(t.segments[i+1:], t.segments[i:])
	t.segments[i] = seg
}

// InsertChapterMarkers replaces any previously inserted markers with one
// marker per chapter, placed at position*duration seconds.
func (t *Transcript) InsertChapterMarkers(chapters []models.Chapter, durationSeconds float64) []models.TranscriptSegment {
	kept := t.segments[:0]
	for _, s := range t.segments {
		if !s.IsChapterMarker {
			kept = append(kept, s)
		}
	}
	t.segments = kept

	markers := make([]models.TranscriptSegment, 0, len(chapters))
	for _, ch := range chapters {
		offset := float64(int(ch.Position * durationSeconds))
		seg := &models.TranscriptSegment{
			ID:              t.newID(),
			OffsetSeconds:   offset,
			TimestampLabel:  models.FormatTimestamp(offset),
			IsChapterMarker: true,
			Title:           ch.Title,
			Emoji:           ch.Emoji,
		}
		// A marker opens its chapter, so it goes before segments at the
		// same offset but after earlier markers.
		i := sort.Search(len(t.segments), func(i int) bool {
			s := t.segments[i]
			if s.OffsetSeconds != offset {
				return s.OffsetSeconds > offset
			}
			return !s.IsChapterMarker
		})
		t.insert(i, seg)
		markers = append(markers, *seg)
	}
	return markers
}

func (t *Transcript) find(id int) *models.TranscriptSegment {
	for _, s := range t.segments {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ToggleHighlight flips the highlight flag. Chapter markers are left alone
// and reported with changed == false.
func (t *Transcript) ToggleHighlight(id int) (models.TranscriptSegment, bool, error) {
	s := t.find(id)
	if s == nil {
		return models.TranscriptSegment{}, false, ErrSegmentNotFound
	}
	if s.IsChapterMarker {
		return *s, false, nil
	}
	s.IsHighlighted = !s.IsHighlighted
	return *s, true, nil
}

func (t *Transcript) ToggleKeyPoint(id int) (models.TranscriptSegment, bool, error) {
	s := t.find(id)
	if s == nil {
		return models.TranscriptSegment{}, false, ErrSegmentNotFound
	}
	if s.IsChapterMarker {
		return *s, false, nil
	}
	s.IsKeyPoint = !s.IsKeyPoint
	return *s, true, nil
}

// Segments returns a copy of the log in order.
func (t *Transcript) Segments() []models.TranscriptSegment {
	out := make([]models.TranscriptSegment, len(t.segments))
	for i, s := range t.segments {
		out[i] = *s
		if s.SourceChunk != nil {
			seq := *s.SourceChunk
			out[i].SourceChunk = &seq
		}
	}
	return out
}

// SpokenCount is the number of transcribed (non-marker) segments.
func (t *Transcript) SpokenCount() int {
	n := 0
	for _, s := range t.segments {
		if !s.IsChapterMarker {
			n++
		}
	}
	return n
}

// Text joins the transcribed segments with their timestamps, the input
// handed to summarization.
func (t *Transcript) Text() string {
	var sb strings.Builder
	for _, s := range t.segments {
		if s.IsChapterMarker {
			continue
		}
		sb.WriteString("[")
		sb.WriteString(s.TimestampLabel)
		sb.WriteString("] ")
		sb.WriteString(s.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// KeySegments lists key-point segments as named excerpts.
func (t *Transcript) KeySegments() []models.KeySegment {
	var out []models.KeySegment
	for _, s := range t.segments {
		if !s.IsKeyPoint || s.IsChapterMarker {
			continue
		}
		out = append(out, models.KeySegment{
			Name:           keySegmentName(len(out) + 1),
			SegmentID:      s.ID,
			Text:           s.Text,
			TimestampLabel: s.TimestampLabel,
		})
	}
	return out
}
