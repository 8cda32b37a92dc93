package session

import (
	"errors"
	"testing"

	"lecture-notes/pkg/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from models.SessionState
		ev   Event
		to   models.SessionState
		ok   bool
	}{
		{models.StateIdle, EventStart, models.StateRecording, true},
		{models.StateRecording, EventPause, models.StatePaused, true},
		{models.StatePaused, EventResume, models.StateRecording, true},
		{models.StateRecording, EventStop, models.StateStopped, true},
		{models.StatePaused, EventStop, models.StateStopped, true},
		{models.StateStopped, EventStop, models.StateStopped, true},
		{models.StateStopped, EventRequestSummary, models.StateSummarizing, true},
		{models.StateSummarizing, EventRequestSummary, models.StateSummarizing, true},
		{models.StateSummarizing, EventSummaryReady, models.StateStopped, true},
		{models.StateSummarizing, EventSummaryFailed, models.StateStopped, true},
		{models.StateStopped, EventSave, models.StateSaved, true},
		{models.StateStopped, EventDiscard, models.StateDiscarded, true},
		{models.StateSummarizing, EventDiscard, models.StateDiscarded, true},
		{models.StateRecording, EventDiscard, models.StateDiscarded, true},

		{models.StateIdle, EventPause, models.StateIdle, false},
		{models.StateIdle, EventStop, models.StateIdle, false},
		{models.StateRecording, EventStart, models.StateRecording, false},
		{models.StateRecording, EventResume, models.StateRecording, false},
		{models.StatePaused, EventPause, models.StatePaused, false},
		{models.StateRecording, EventSave, models.StateRecording, false},
		{models.StateSummarizing, EventSave, models.StateSummarizing, false},
		{models.StateSaved, EventDiscard, models.StateSaved, false},
		{models.StateSaved, EventStart, models.StateSaved, false},
		{models.StateDiscarded, EventStart, models.StateDiscarded, false},
	}
	for _, tt := range tests {
		got, err := Next(tt.from, tt.ev)
		if tt.ok && err != nil {
			t.Errorf("Next(%s, %s) error: %v", tt.from, tt.ev, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Next(%s, %s) error = %v, want ErrInvalidTransition", tt.from, tt.ev, err)
		}
		if got != tt.to {
			t.Errorf("Next(%s, %s) = %s, want %s", tt.from, tt.ev, got, tt.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []models.SessionState{models.StateSaved, models.StateDiscarded} {
		if !s.Terminal() {
			t.Errorf("%s is not terminal", s)
		}
		for ev, to := range transitions[s] {
			if to != s {
				t.Errorf("%s leaves terminal state %s for %s", ev, s, to)
			}
		}
	}
}
