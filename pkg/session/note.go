package session

import (
	"strconv"
	"strings"

	"lecture-notes/pkg/models"
)

const (
	DefaultTag   = "Recording"
	DefaultEmoji = "🎙️"
)

func keySegmentName(n int) string {
	return "Key Point " + strconv.Itoa(n)
}

// normalizeTags puts DefaultTag first, then the trimmed user tags in
// first-seen order without duplicates.
func normalizeTags(tags []string) []string {
	seen := map[string]bool{DefaultTag: true}
	out := make([]string, 0, len(tags)+1)
	out = append(out, DefaultTag)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (c *Controller) buildNoteLocked(title string, tags []string) models.Note {
	note := models.Note{
		ID:              models.NewNoteID(),
		Title:           title,
		Emoji:           DefaultEmoji,
		CreatedAt:       c.deps.Clock.Now(),
		DurationSeconds: c.elapsed.Seconds(),
		Tags:            normalizeTags(tags),
		KeyPoints:       []string{},
		KeySegments:     c.transcript.KeySegments(),
		FullTranscript:  c.transcript.Segments(),
	}
	if note.KeySegments == nil {
		note.KeySegments = []models.KeySegment{}
	}
	if c.summary != nil {
		note.SummaryText = c.summary.Text
		note.KeyPoints = append(note.KeyPoints, c.summary.KeyPoints...)
	}
	if c.audio != nil {
		note.Audio = *c.audio
	}
	return note
}
