// Package session implements the recording session pipeline: capture,
// periodic chunking, serialized per-chunk transcription, annotation,
// summarization and the hand-off of the finished note to a store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/ai"
	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/models"
)

type Transcriber interface {
	Transcribe(ctx context.Context, chunk models.AudioChunk) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (models.Summary, error)
}

// NoteSaver receives the finished note and returns its stored id.
type NoteSaver interface {
	Save(ctx context.Context, note models.Note) (string, error)
}

// AudioStore owns audio artifacts once a recording is finalized.
type AudioStore interface {
	Persist(ctx context.Context, sessionID string, ref models.AudioRef) (models.AudioRef, error)
	Release(ctx context.Context, refs ...models.AudioRef) error
}

// Dispatcher runs background transcription work.
type Dispatcher interface {
	Submit(task func()) error
}

type goDispatcher struct{}

func (goDispatcher) Submit(task func()) error {
	go task()
	return nil
}

type Deps struct {
	Device      capture.Device
	Transcriber Transcriber
	Summarizer  Summarizer
	Notes       NoteSaver
	Audio       AudioStore
	Dispatcher  Dispatcher
	Clock       Clock
	Logger      *log.Logger
}

type Options struct {
	ChunkInterval      time.Duration
	MinTailChunk       time.Duration
	TickInterval       time.Duration
	TranscribeAttempts int
	TranscribeTimeout  time.Duration
	SummarizeTimeout   time.Duration
}

func DefaultOptions() Options {
	return Options{
		ChunkInterval:      15 * time.Second,
		MinTailChunk:       5 * time.Second,
		TickInterval:       time.Second,
		TranscribeAttempts: 2,
		TranscribeTimeout:  60 * time.Second,
		SummarizeTimeout:   2 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChunkInterval <= 0 {
		o.ChunkInterval = d.ChunkInterval
	}
	if o.MinTailChunk < 0 {
		o.MinTailChunk = 0
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.TranscribeAttempts <= 0 {
		o.TranscribeAttempts = d.TranscribeAttempts
	}
	if o.TranscribeTimeout <= 0 {
		o.TranscribeTimeout = d.TranscribeTimeout
	}
	if o.SummarizeTimeout <= 0 {
		o.SummarizeTimeout = d.SummarizeTimeout
	}
	return o
}

type summaryCall struct {
	done    chan struct{}
	summary models.Summary
	err     error
}

// Controller drives one recording session. All state is guarded by mu;
// provider calls run without it and are matched back by epoch.
type Controller struct {
	id     string
	deps   Deps
	opts   Options
	logger *log.Logger
	events *broadcaster

	mu           sync.Mutex
	state        models.SessionState
	startedAt    time.Time
	elapsed      time.Duration
	runningSince time.Time
	degraded     bool
	handle       models.AudioRef
	audio        *models.AudioRef
	chunks       []*models.AudioChunk
	transcript   *Transcript
	scheduler    *ChunkScheduler
	summary      *models.Summary
	noteID       string

	epoch  int
	ctx    context.Context
	cancel context.CancelFunc

	ticker   Ticker
	tickDone chan struct{}

	pumping     bool
	idle        chan struct{}
	summarizing *summaryCall
}

func NewController(deps Deps, opts Options) *Controller {
	return newController(models.NewSessionID(), deps, opts)
}

func newController(id string, deps Deps, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = goDispatcher{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:         id,
		deps:       deps,
		opts:       opts,
		logger:     deps.Logger.With("session", id),
		events:     newBroadcaster(),
		state:      models.StateIdle,
		transcript: NewTranscript(),
		scheduler:  NewChunkScheduler(opts.ChunkInterval),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) State() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a stream of session notifications and a function that
// ends the subscription. The stream is closed when the session ends.
func (c *Controller) Subscribe() (<-chan Notification, func()) {
	return c.events.subscribe()
}

func (c *Controller) wrap(op string, chunk int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, SessionID: c.id, Chunk: chunk, Err: err}
}

func (c *Controller) notifyLocked(n Notification) {
	n.SessionID = c.id
	n.State = c.state
	n.At = c.deps.Clock.Now()
	c.events.publish(n)
}

func (c *Controller) setStateLocked(s models.SessionState) {
	if c.state == s {
		return
	}
	c.logger.Info("State changed", "from", c.state, "to", s)
	c.state = s
	c.notifyLocked(Notification{Type: EventStateChanged})
}

func (c *Controller) elapsedLocked() time.Duration {
	if c.runningSince.IsZero() {
		return c.elapsed
	}
	return c.elapsed + c.deps.Clock.Now().Sub(c.runningSince)
}

func (c *Controller) freezeClockLocked() {
	c.elapsed = c.elapsedLocked()
	c.runningSince = time.Time{}
}

// Start acquires the capture device and begins recording.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	to, err := Next(c.state, EventStart)
	if err != nil {
		return c.wrap("start", 0, err)
	}
	handle, err := c.deps.Device.Start(ctx)
	if err != nil {
		c.logger.Error("Failed to start capture", "err", err)
		return c.wrap("start", 0, err)
	}

	now := c.deps.Clock.Now()
	c.handle = handle
	c.startedAt = now
	c.elapsed = 0
	c.runningSince = now
	c.chunks = nil
	c.transcript = NewTranscript()
	c.scheduler = NewChunkScheduler(c.opts.ChunkInterval)
	c.startTickerLocked()
	c.setStateLocked(to)
	return nil
}

func (c *Controller) startTickerLocked() {
	t := c.deps.Clock.NewTicker(c.opts.TickInterval)
	done := make(chan struct{})
	c.ticker, c.tickDone = t, done
	ctx := c.ctx
	go func() {
		for {
			select {
			case <-t.C():
				c.Tick(ctx)
			case <-done:
				return
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickDone)
	c.ticker, c.tickDone = nil, nil
}

// Tick emits every chunk boundary that is due. It is driven by the session
// ticker and does nothing unless the session is recording.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	kick := c.tickLocked(ctx)
	epoch := c.epoch
	c.mu.Unlock()

	if kick {
		c.dispatch(epoch)
	}
}

func (c *Controller) tickLocked(ctx context.Context) bool {
	if c.state != models.StateRecording {
		return false
	}
	kick := false
	_, taps := c.deps.Device.(capture.Tapper)
	for c.scheduler.Due(c.elapsedLocked()) {
		// A device that cannot be tapped is paused for the cut and records
		// nothing meanwhile, so the session clock stops with it.
		if !taps {
			c.freezeClockLocked()
		}
		chunk, err := c.scheduler.Next(ctx, c.deps.Device)
		if !taps {
			c.runningSince = c.deps.Clock.Now()
		}
		if chunk != nil {
			kick = c.addChunkLocked(chunk) || kick
		}
		if errors.Is(err, ErrCaptureInterrupted) {
			c.recoverCaptureLocked(ctx, err)
		}
		if chunk == nil {
			c.logger.Warn("Chunk extraction failed, retrying next tick", "from", c.scheduler.Cursor(), "err", err)
			c.notifyLocked(Notification{Type: EventError, Error: c.wrap("chunk", 0, err).Error()})
			break
		}
	}
	return kick
}

// recoverCaptureLocked makes one more resume attempt after a cut left the
// device paused. If that fails too the session carries on degraded.
func (c *Controller) recoverCaptureLocked(ctx context.Context, cause error) {
	if err := c.deps.Device.Resume(ctx); err == nil {
		c.logger.Warn("Capture resumed after interruption", "cause", cause)
		return
	}
	if c.degraded {
		return
	}
	c.degraded = true
	c.logger.Error("Capture interrupted, session degraded", "err", cause)
	c.notifyLocked(Notification{Type: EventDegraded, Error: c.wrap("capture", 0, cause).Error()})
}

// addChunkLocked records chunk and reports whether a transcription pump has
// to be dispatched for it.
func (c *Controller) addChunkLocked(chunk *models.AudioChunk) bool {
	chunk.SessionID = c.id
	c.chunks = append(c.chunks, chunk)
	c.logger.Info("Chunk created", "seq", chunk.SequenceNumber, "offset", chunk.StartOffsetSeconds, "duration", chunk.DurationSeconds)
	cp := *chunk
	c.notifyLocked(Notification{Type: EventChunkCreated, Chunk: &cp})

	if c.pumping {
		return false
	}
	c.pumping = true
	c.idle = make(chan struct{})
	return true
}

func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	to, err := Next(c.state, EventPause)
	if err != nil {
		c.mu.Unlock()
		return c.wrap("pause", 0, err)
	}
	kick := c.tickLocked(ctx)
	epoch := c.epoch
	if err := c.deps.Device.Pause(ctx); err != nil {
		c.mu.Unlock()
		if kick {
			c.dispatch(epoch)
		}
		return c.wrap("pause", 0, err)
	}
	c.freezeClockLocked()
	c.setStateLocked(to)
	c.mu.Unlock()

	if kick {
		c.dispatch(epoch)
	}
	return nil
}

func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	to, err := Next(c.state, EventResume)
	if err != nil {
		return c.wrap("resume", 0, err)
	}
	if err := c.deps.Device.Resume(ctx); err != nil {
		return c.wrap("resume", 0, err)
	}
	c.runningSince = c.deps.Clock.Now()
	c.setStateLocked(to)
	return nil
}

// Stop finalizes the recording. Calling it on a stopped session is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == models.StateStopped {
		c.mu.Unlock()
		return nil
	}
	to, err := Next(c.state, EventStop)
	if err != nil {
		c.mu.Unlock()
		return c.wrap("stop", 0, err)
	}

	kick := c.tickLocked(ctx)
	epoch := c.epoch
	final, err := c.deps.Device.Stop(ctx)
	if err != nil {
		c.mu.Unlock()
		if kick {
			c.dispatch(epoch)
		}
		return c.wrap("stop", 0, err)
	}
	c.freezeClockLocked()
	c.stopTickerLocked()

	if end := c.elapsed; end-c.scheduler.Cursor() >= c.opts.MinTailChunk && end > c.scheduler.Cursor() {
		chunk, err := c.scheduler.Tail(ctx, c.deps.Device, end)
		if err != nil {
			c.logger.Warn("Tail chunk extraction failed", "err", err)
			c.notifyLocked(Notification{Type: EventError, Error: c.wrap("chunk", 0, err).Error()})
		} else {
			kick = c.addChunkLocked(chunk) || kick
		}
	}

	if c.deps.Audio != nil {
		persisted, err := c.deps.Audio.Persist(ctx, c.id, final)
		if err != nil {
			c.logger.Error("Failed to persist recording", "uri", final.URI, "err", err)
			c.notifyLocked(Notification{Type: EventError, Error: c.wrap("persist", 0, err).Error()})
		} else {
			final = persisted
		}
	}
	final.DurationSeconds = c.elapsed.Seconds()
	c.audio = &final
	c.setStateLocked(to)
	c.mu.Unlock()

	if kick {
		c.dispatch(epoch)
	}
	return nil
}

func (c *Controller) dispatch(epoch int) {
	err := c.deps.Dispatcher.Submit(func() { c.pump(epoch) })
	if err == nil {
		return
	}
	c.logger.Error("Failed to dispatch transcription", "err", err)
	c.mu.Lock()
	c.finishPumpLocked()
	c.mu.Unlock()
}

func (c *Controller) finishPumpLocked() {
	if !c.pumping {
		return
	}
	c.pumping = false
	close(c.idle)
}

func (c *Controller) nextPendingLocked() *models.AudioChunk {
	for _, ch := range c.chunks {
		if ch.TranscriptionState == models.TranscriptionPending {
			return ch
		}
	}
	return nil
}

// pump transcribes pending chunks one at a time, lowest sequence number
// first, until none is left.
func (c *Controller) pump(epoch int) {
	for {
		c.mu.Lock()
		if c.epoch != epoch {
			c.finishPumpLocked()
			c.mu.Unlock()
			return
		}
		chunk := c.nextPendingLocked()
		if chunk == nil {
			c.finishPumpLocked()
			c.mu.Unlock()
			return
		}
		chunk.TranscriptionState = models.TranscriptionInFlight
		chunk.Attempts++
		req := *chunk
		c.notifyLocked(Notification{Type: EventChunkUpdated, Chunk: &req})
		ctx := c.ctx
		c.mu.Unlock()

		tctx, cancel := context.WithTimeout(ctx, c.opts.TranscribeTimeout)
		text, err := c.deps.Transcriber.Transcribe(tctx, req)
		cancel()

		c.mu.Lock()
		if c.epoch != epoch {
			c.logger.Debug("Dropping transcription for discarded session", "seq", req.SequenceNumber)
			c.finishPumpLocked()
			c.mu.Unlock()
			return
		}
		c.completeLocked(chunk, text, err)
		c.mu.Unlock()
	}
}

func (c *Controller) completeLocked(chunk *models.AudioChunk, text string, err error) {
	seq := chunk.SequenceNumber
	if err == nil {
		chunk.TranscriptionState = models.TranscriptionComplete
		chunk.Error = ""
		seg := c.transcript.AppendFromChunk(*chunk, strings.TrimSpace(text))
		cp := *chunk
		c.notifyLocked(Notification{Type: EventChunkUpdated, Chunk: &cp})
		c.notifyLocked(Notification{Type: EventSegmentAdded, Segment: &seg})
		return
	}

	chunk.Error = err.Error()
	if ai.Retryable(err) && chunk.Attempts < c.opts.TranscribeAttempts {
		c.logger.Warn("Transcription failed, retrying", "seq", seq, "attempt", chunk.Attempts, "err", err)
		chunk.TranscriptionState = models.TranscriptionPending
		return
	}

	c.logger.Error("Transcription failed", "seq", seq, "attempts", chunk.Attempts, "err", err)
	chunk.TranscriptionState = models.TranscriptionFailed
	cp := *chunk
	c.notifyLocked(Notification{Type: EventChunkUpdated, Chunk: &cp})
	c.notifyLocked(Notification{Type: EventError, Chunk: &cp, Error: c.wrap("transcribe", seq, err).Error()})
}

// WaitIdle blocks until no transcription work is pending for the session.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.pumping {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RequestSummary summarizes the transcript once all chunks are transcribed.
// A call made while a summary is already running waits for that result.
func (c *Controller) RequestSummary(ctx context.Context) (models.Summary, error) {
	c.mu.Lock()
	call := c.summarizing
	if call == nil {
		to, err := Next(c.state, EventRequestSummary)
		if err != nil {
			c.mu.Unlock()
			return models.Summary{}, c.wrap("summarize", 0, err)
		}
		call = &summaryCall{done: make(chan struct{})}
		c.summarizing = call
		c.setStateLocked(to)
		go c.runSummary(c.ctx, call, c.epoch)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.summary, call.err
	case <-ctx.Done():
		return models.Summary{}, c.wrap("summarize", 0, ctx.Err())
	}
}

func (c *Controller) runSummary(ctx context.Context, call *summaryCall, epoch int) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.SummarizeTimeout)
	defer cancel()

	var summary models.Summary
	err := c.WaitIdle(ctx)
	if err == nil {
		c.mu.Lock()
		text, spoken := c.transcript.Text(), c.transcript.SpokenCount()
		c.mu.Unlock()
		if spoken == 0 {
			err = ai.ErrEmptyInput
		} else {
			summary, err = c.deps.Summarizer.Summarize(ctx, text)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(call.done)

	if c.epoch != epoch {
		call.err = c.wrap("summarize", 0, ErrDiscarded)
		return
	}
	c.summarizing = nil
	if err != nil {
		c.logger.Error("Summarization failed", "err", err)
		call.err = c.wrap("summarize", 0, err)
		to, _ := Next(c.state, EventSummaryFailed)
		c.setStateLocked(to)
		c.notifyLocked(Notification{Type: EventError, Error: call.err.Error()})
		return
	}

	c.summary = &summary
	c.transcript.InsertChapterMarkers(summary.Chapters, c.elapsed.Seconds())
	call.summary = summary
	c.logger.Info("Summary ready", "key_points", len(summary.KeyPoints), "chapters", len(summary.Chapters))
	to, _ := Next(c.state, EventSummaryReady)
	c.setStateLocked(to)
	cp := summary
	c.notifyLocked(Notification{Type: EventSummary, Summary: &cp})
	c.notifyLocked(Notification{Type: EventChaptersSet})
}

// Save turns the stopped session into a note and hands it to the store.
// Pending transcriptions are drained first.
func (c *Controller) Save(ctx context.Context, title string, tags []string) (models.Note, error) {
	c.mu.Lock()
	if _, err := Next(c.state, EventSave); err != nil {
		c.mu.Unlock()
		return models.Note{}, c.wrap("save", 0, err)
	}
	c.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return models.Note{}, c.wrap("save", 0, fmt.Errorf("%w: title is required", ErrValidation))
	}

	if err := c.WaitIdle(ctx); err != nil {
		return models.Note{}, c.wrap("save", 0, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	to, err := Next(c.state, EventSave)
	if err != nil {
		return models.Note{}, c.wrap("save", 0, err)
	}
	note := c.buildNoteLocked(title, tags)
	id, err := c.deps.Notes.Save(ctx, note)
	if err != nil {
		c.logger.Error("Failed to save note", "err", err)
		return models.Note{}, c.wrap("save", 0, err)
	}
	note.ID = id
	c.noteID = id

	if c.deps.Audio != nil {
		if err := c.deps.Audio.Release(ctx, c.chunkRefsLocked()...); err != nil {
			c.logger.Warn("Failed to release chunk audio", "err", err)
		}
	}
	c.cancel()
	c.logger.Info("Note saved", "note", id, "title", title, "duration", note.DurationSeconds)
	c.setStateLocked(to)
	c.events.close()
	return note, nil
}

func (c *Controller) chunkRefsLocked() []models.AudioRef {
	refs := make([]models.AudioRef, 0, len(c.chunks))
	for _, ch := range c.chunks {
		if !ch.Audio.IsZero() {
			refs = append(refs, ch.Audio)
		}
	}
	return refs
}

// Discard abandons the session and releases every audio artifact. A
// recording in progress is stopped first.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.StateDiscarded {
		return nil
	}
	to, err := Next(c.state, EventDiscard)
	if err != nil {
		return c.wrap("discard", 0, err)
	}

	refs := c.chunkRefsLocked()
	if c.state.Capturing() {
		c.stopTickerLocked()
		c.freezeClockLocked()
		final, err := c.deps.Device.Stop(ctx)
		if err != nil {
			c.logger.Warn("Failed to stop capture on discard", "err", err)
			final = c.handle
		}
		if !final.IsZero() {
			refs = append(refs, final)
		}
	}
	if c.audio != nil {
		refs = append(refs, *c.audio)
	}

	c.epoch++
	c.cancel()
	c.summarizing = nil
	c.audio = nil

	if c.deps.Audio != nil {
		if err := c.deps.Audio.Release(ctx, refs...); err != nil {
			c.logger.Warn("Failed to release session audio", "err", err)
		}
	}
	c.setStateLocked(to)
	c.events.close()
	return nil
}

func (c *Controller) annotatable() error {
	switch c.state {
	case models.StateRecording, models.StatePaused, models.StateStopped, models.StateSummarizing:
		return nil
	}
	return fmt.Errorf("%w: annotate while %s", ErrInvalidTransition, c.state)
}

func (c *Controller) ToggleHighlight(segmentID int) (models.TranscriptSegment, error) {
	return c.toggle("highlight", segmentID, (*Transcript).ToggleHighlight)
}

func (c *Controller) ToggleKeyPoint(segmentID int) (models.TranscriptSegment, error) {
	return c.toggle("keypoint", segmentID, (*Transcript).ToggleKeyPoint)
}

// toggle applies fn to the current transcript. Start replaces the
// transcript, so it is only read under c.mu.
func (c *Controller) toggle(op string, segmentID int, fn func(*Transcript, int) (models.TranscriptSegment, bool, error)) (models.TranscriptSegment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.annotatable(); err != nil {
		return models.TranscriptSegment{}, c.wrap(op, 0, err)
	}
	seg, changed, err := fn(c.transcript, segmentID)
	if err != nil {
		return models.TranscriptSegment{}, c.wrap(op, 0, fmt.Errorf("%w: %d", err, segmentID))
	}
	if changed {
		cp := seg
		c.notifyLocked(Notification{Type: EventSegmentUpdated, Segment: &cp})
	}
	return seg, nil
}

// Snapshot returns a copy of the session as it is now.
func (c *Controller) Snapshot() models.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.SessionSnapshot{
		ID:             c.id,
		State:          c.state,
		StartedAt:      c.startedAt,
		ElapsedSeconds: c.elapsedLocked().Seconds(),
		Degraded:       c.degraded,
		Chunks:         make([]models.AudioChunk, len(c.chunks)),
		Transcript:     c.transcript.Segments(),
		NoteID:         c.noteID,
	}
	for i, ch := range c.chunks {
		snap.Chunks[i] = *ch
	}
	if c.audio != nil {
		a := *c.audio
		snap.Audio = &a
	}
	if c.summary != nil {
		s := *c.summary
		snap.Summary = &s
	}
	return snap
}
