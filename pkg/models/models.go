package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateRecording   SessionState = "recording"
	StatePaused      SessionState = "paused"
	StateStopped     SessionState = "stopped"
	StateSummarizing SessionState = "summarizing"
	StateSaved       SessionState = "saved"
	StateDiscarded   SessionState = "discarded"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateSaved || s == StateDiscarded
}

// Capturing reports whether the capture device is held by the session.
func (s SessionState) Capturing() bool {
	return s == StateRecording || s == StatePaused
}

type TranscriptionState string

const (
	TranscriptionPending  TranscriptionState = "pending"
	TranscriptionInFlight TranscriptionState = "in_flight"
	TranscriptionComplete TranscriptionState = "complete"
	TranscriptionFailed   TranscriptionState = "failed"
)

// AudioRef points at an audio artifact on some storage medium.
type AudioRef struct {
	URI             string  `json:"uri"`
	Size            int64   `json:"size"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

func (r AudioRef) IsZero() bool {
	return r.URI == ""
}

// ImageRef points at a stored image, such as a whiteboard photo.
type ImageRef struct {
	URI         string `json:"uri"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type AudioChunk struct {
	SessionID          string             `json:"session_id"`
	SequenceNumber     int                `json:"sequence_number"`
	StartOffsetSeconds float64            `json:"start_offset_seconds"`
	DurationSeconds    float64            `json:"duration_seconds"`
	Audio              AudioRef           `json:"audio"`
	TranscriptionState TranscriptionState `json:"transcription_state"`
	Attempts           int                `json:"attempts"`
	Error              string             `json:"error,omitempty"`
}

// EndOffsetSeconds is where the next chunk starts.
func (c AudioChunk) EndOffsetSeconds() float64 {
	return c.StartOffsetSeconds + c.DurationSeconds
}

type TranscriptSegment struct {
	ID              int     `json:"id"`
	SourceChunk     *int    `json:"source_chunk,omitempty"`
	Text            string  `json:"text,omitempty"`
	OffsetSeconds   float64 `json:"offset_seconds"`
	TimestampLabel  string  `json:"timestamp_label"`
	IsHighlighted   bool    `json:"is_highlighted"`
	IsKeyPoint      bool    `json:"is_key_point"`
	IsChapterMarker bool    `json:"is_chapter_marker"`
	Title           string  `json:"title,omitempty"`
	Emoji           string  `json:"emoji,omitempty"`
}

// Chapter is a structural boundary produced by summarization. Position is
// the fraction of the recording (0..1) where the chapter begins.
type Chapter struct {
	Title    string  `json:"title"`
	Emoji    string  `json:"emoji"`
	Position float64 `json:"position"`
}

type Summary struct {
	Text      string    `json:"text"`
	KeyPoints []string  `json:"key_points"`
	Chapters  []Chapter `json:"chapters"`
}

// KeySegment is a key-point transcript segment exposed as a named excerpt.
type KeySegment struct {
	Name           string `json:"name"`
	SegmentID      int    `json:"segment_id"`
	Text           string `json:"text"`
	TimestampLabel string `json:"timestamp_label"`
}

type Note struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Emoji           string              `json:"emoji,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	DurationSeconds float64             `json:"duration_seconds"`
	Tags            []string            `json:"tags"`
	SummaryText     string              `json:"summary_text"`
	KeyPoints       []string            `json:"key_points"`
	KeySegments     []KeySegment        `json:"key_segments"`
	FullTranscript  []TranscriptSegment `json:"full_transcript"`
	Audio           AudioRef            `json:"audio"`
	Image           *ImageRef           `json:"image,omitempty"`
}

// WhiteboardAnalysis is what an image analyzer reads off a whiteboard photo.
type WhiteboardAnalysis struct {
	Text      string   `json:"text"`
	KeyPoints []string `json:"key_points"`
}

// HasTag reports whether the note carries tag, compared exactly.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SegmentAt returns the last transcript segment starting at or before offset,
// which is the seek target for playback from that point.
func (n *Note) SegmentAt(offsetSeconds float64) (TranscriptSegment, bool) {
	var found TranscriptSegment
	ok := false
	for _, seg := range n.FullTranscript {
		if seg.OffsetSeconds > offsetSeconds {
			break
		}
		found, ok = seg, true
	}
	return found, ok
}

// SessionSnapshot is a point-in-time copy of a recording session.
type SessionSnapshot struct {
	ID             string              `json:"id"`
	State          SessionState        `json:"state"`
	StartedAt      time.Time           `json:"started_at"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	Degraded       bool                `json:"degraded"`
	Audio          *AudioRef           `json:"audio,omitempty"`
	Chunks         []AudioChunk        `json:"chunks"`
	Transcript     []TranscriptSegment `json:"transcript"`
	Summary        *Summary            `json:"summary,omitempty"`
	NoteID         string              `json:"note_id,omitempty"`
}

func NewSessionID() string {
	return uuid.New().String()
}

func NewNoteID() string {
	return uuid.New().String()
}

// FormatTimestamp renders an elapsed offset as MM:SS, or H:MM:SS past an hour.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

const (
	LearningVisual      = "visual"
	LearningAuditory    = "auditory"
	LearningKinesthetic = "kinesthetic"
)

// Preferences are the user settings kept across runs.
type Preferences struct {
	DarkMode      bool   `json:"dark_mode"`
	Notifications bool   `json:"notifications"`
	OfflineAccess bool   `json:"offline_access"`
	LearningStyle string `json:"learning_style"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: true,
		OfflineAccess: true,
		LearningStyle: LearningVisual,
	}
}
