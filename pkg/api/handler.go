// Package api exposes recording sessions, notes, whiteboard capture and
// preferences over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"lecture-notes/pkg/ai"
	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/models"
	"lecture-notes/pkg/notes"
	"lecture-notes/pkg/preferences"
	"lecture-notes/pkg/session"
	"lecture-notes/pkg/storage"
	"lecture-notes/pkg/whiteboard"
)

// maxImageBytes bounds a whiteboard upload.
const maxImageBytes = 20 << 20

type Handlers struct {
	sessions *session.Manager
	notes    *notes.Service
	boards   *whiteboard.Service
	prefs    *preferences.Service
	logger   *log.Logger
}

func NewHandlers(sessions *session.Manager, notes *notes.Service, boards *whiteboard.Service, prefs *preferences.Service, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		sessions: sessions,
		notes:    notes,
		boards:   boards,
		prefs:    prefs,
		logger:   logger.With("component", "api"),
	}
}

// Router registers every route on a new mux router.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sessions", h.StartSessionHandler).Methods("POST")
	r.HandleFunc("/sessions", h.ListSessionsHandler).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.GetSessionHandler).Methods("GET")
	r.HandleFunc("/sessions/{id}/{action:pause|resume|stop|discard}", h.SessionActionHandler).Methods("POST")
	r.HandleFunc("/sessions/{id}/summary", h.SummaryHandler).Methods("POST")
	r.HandleFunc("/sessions/{id}/save", h.SaveHandler).Methods("POST")
	r.HandleFunc("/sessions/{id}/segments/{segment}/{kind:highlight|keypoint}", h.AnnotateHandler).Methods("POST")
	r.HandleFunc("/sessions/{id}/events", h.EventsHandler)

	r.HandleFunc("/notes", h.ListNotesHandler).Methods("GET")
	r.HandleFunc("/notes/tags", h.TagsHandler).Methods("GET")
	r.HandleFunc("/notes/{id}", h.GetNoteHandler).Methods("GET")
	r.HandleFunc("/notes/{id}", h.DeleteNoteHandler).Methods("DELETE")

	r.HandleFunc("/whiteboard", h.WhiteboardHandler).Methods("POST")

	r.HandleFunc("/preferences", h.GetPreferencesHandler).Methods("GET")
	r.HandleFunc("/preferences", h.UpdatePreferencesHandler).Methods("PUT")
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrValidation),
		errors.Is(err, preferences.ErrInvalidLearningStyle):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSegmentNotFound),
		errors.Is(err, storage.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrDiscarded):
		return http.StatusConflict
	case errors.Is(err, ai.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ai.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ai.ErrNetwork), errors.Is(err, capture.ErrDevice):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error     string `json:"error"`
	SessionID string `json:"session_id,omitempty"`
	Chunk     int    `json:"chunk,omitempty"`
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "err", err)
	}
	resp := errorResponse{Error: err.Error()}
	var serr *session.Error
	if errors.As(err, &serr) {
		resp.SessionID = serr.SessionID
		resp.Chunk = serr.Chunk
	}
	writeJSON(w, status, resp)
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return c, true
}

func (h *Handlers) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Start(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Recording started", "session", c.ID())
	writeJSON(w, http.StatusCreated, c.Snapshot())
}

func (h *Handlers) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	snaps := h.sessions.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": snaps,
		"count":    len(snaps),
	})
}

func (h *Handlers) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handlers) SessionActionHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var err error
	switch mux.Vars(r)["action"] {
	case "pause":
		err = c.Pause(r.Context())
	case "resume":
		err = c.Resume(r.Context())
	case "stop":
		err = c.Stop(r.Context())
	case "discard":
		err = c.Discard(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// SummaryHandler waits for the summary unless called with ?wait=false, in
// which case it answers 202 and the result arrives on the event stream.
func (h *Handlers) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		if st := c.State(); st != models.StateStopped && st != models.StateSummarizing {
			h.writeError(w, &session.Error{Op: "summarize", SessionID: c.ID(), Err: session.ErrInvalidTransition})
			return
		}
		go func() {
			if _, err := c.RequestSummary(context.Background()); err != nil {
				h.logger.Warn("Background summary failed", "session", c.ID(), "err", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"session_id": c.ID(), "status": "summarizing"})
		return
	}

	summary, err := c.RequestSummary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type saveRequest struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func (h *Handlers) SaveHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	note, err := c.Save(r.Context(), req.Title, req.Tags)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Note saved", "note", note.ID, "session", c.ID())
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handlers) AnnotateHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	segmentID, err := strconv.Atoi(vars["segment"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "segment id must be an integer"})
		return
	}

	var seg models.TranscriptSegment
	if vars["kind"] == "highlight" {
		seg, err = c.ToggleHighlight(segmentID)
	} else {
		seg, err = c.ToggleKeyPoint(segmentID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (h *Handlers) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	found, err := h.notes.Find(r.Context(), notes.Query{Search: q.Get("q"), Filter: q.Get("filter")})
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	if len(found) > limit {
		found = found[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notes": found,
		"count": len(found),
	})
}

func (h *Handlers) TagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.notes.Tags(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// GetNoteHandler returns a note. With ?at=<seconds> it returns the transcript
// segment playing at that offset instead.
func (h *Handlers) GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	if at := r.URL.Query().Get("at"); at != "" {
		offset, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at must be a non-negative number of seconds"})
			return
		}
		seg, ok := note.SegmentAt(offset)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no segment at offset"})
			return
		}
		writeJSON(w, http.StatusOK, seg)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.notes.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Note deleted", "note", id)
	w.WriteHeader(http.StatusNoContent)
}

// WhiteboardHandler takes the raw photo as the request body. The optional
// title and comma-separated tags come from the query string.
func (h *Handlers) WhiteboardHandler(w http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read image: " + err.Error()})
		return
	}

	q := r.URL.Query()
	var tags []string
	if raw := q.Get("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}
	note, err := h.boards.Capture(r.Context(), whiteboard.Request{Image: image, Title: q.Get("title"), Tags: tags})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handlers) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.Get())
}

// preferencesPatch carries only the fields a client wants to change.
type preferencesPatch struct {
	DarkMode      *bool   `json:"dark_mode"`
	Notifications *bool   `json:"notifications"`
	OfflineAccess *bool   `json:"offline_access"`
	LearningStyle *string `json:"learning_style"`
}

func (p preferencesPatch) apply(prefs *models.Preferences) {
	if p.DarkMode != nil {
		prefs.DarkMode = *p.DarkMode
	}
	if p.Notifications != nil {
		prefs.Notifications = *p.Notifications
	}
	if p.OfflineAccess != nil {
		prefs.OfflineAccess = *p.OfflineAccess
	}
	if p.LearningStyle != nil {
		prefs.LearningStyle = *p.LearningStyle
	}
}

func (h *Handlers) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var patch preferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	prefs, err := h.prefs.Update(r.Context(), patch.apply)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
