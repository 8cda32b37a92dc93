package session

import (
	"fmt"

	"lecture-notes/pkg/models"
)

type Event string

const (
	EventStart          Event = "start"
	EventPause          Event = "pause"
	EventResume         Event = "resume"
	EventStop           Event = "stop"
	EventRequestSummary Event = "request_summary"
	EventSummaryReady   Event = "summary_ready"
	EventSummaryFailed  Event = "summary_failed"
	EventSave           Event = "save"
	EventDiscard        Event = "discard"
)

var transitions = map[models.SessionState]map[Event]models.SessionState{
	models.StateIdle: {
		EventStart: models.StateRecording,
	},
	models.StateRecording: {
		EventPause:   models.StatePaused,
		EventStop:    models.StateStopped,
		EventDiscard: models.StateDiscarded,
	},
	models.StatePaused: {
		EventResume:  models.StateRecording,
		EventStop:    models.StateStopped,
		EventDiscard: models.StateDiscarded,
	},
	models.StateStopped: {
		EventStop:           models.StateStopped,
		EventRequestSummary: models.StateSummarizing,
		EventSave:           models.StateSaved,
		EventDiscard:        models.StateDiscarded,
	},
	models.StateSummarizing: {
		EventRequestSummary: models.StateSummarizing,
		EventSummaryReady:   models.StateStopped,
		EventSummaryFailed:  models.StateStopped,
		EventDiscard:        models.StateDiscarded,
	},
	models.StateDiscarded: {
		EventDiscard: models.StateDiscarded,
	},
}

// Next returns the state reached from `from` on ev. It has no side effects.
func Next(from models.SessionState, ev Event) (models.SessionState, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev, from)
}
