package session

import (
	"sync"
	"time"

	"lecture-notes/pkg/models"
)

type EventType string

const (
	EventStateChanged   EventType = "state_changed"
	EventChunkCreated   EventType = "chunk_created"
	EventChunkUpdated   EventType = "chunk_updated"
	EventSegmentAdded   EventType = "segment_added"
	EventSegmentUpdated EventType = "segment_updated"
	EventChaptersSet    EventType = "chapters_set"
	EventSummary        EventType = "summary_ready"
	EventDegraded       EventType = "degraded"
	EventError          EventType = "error"
)

// Notification is published to subscribers whenever the session changes.
type Notification struct {
	Type      EventType                 `json:"type"`
	SessionID string                    `json:"session_id"`
	State     models.SessionState       `json:"state"`
	Chunk     *models.AudioChunk        `json:"chunk,omitempty"`
	Segment   *models.TranscriptSegment `json:"segment,omitempty"`
	Summary   *models.Summary           `json:"summary,omitempty"`
	Error     string                    `json:"error,omitempty"`
	At        time.Time                 `json:"at"`
}

const subscriberBuffer = 64

// broadcaster fans notifications out to subscribers without blocking the
// publisher. A subscriber that falls behind loses notifications.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Notification
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Notification)}
}

func (b *broadcaster) subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Notification, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// close ends every subscription after the final notification.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
