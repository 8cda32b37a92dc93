package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/models"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) Tickers() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTicker(nil), c.tickers...)
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeDevice records calls and fails on demand. Errors queued in resumeErrs
// and cutErrs are returned by successive calls.
type fakeDevice struct {
	mu         sync.Mutex
	startErr   error
	resumeErrs []error
	cutErrs    []error
	// onCut runs inside every successful Cut, e.g. to let time pass.
	onCut func()

	starts, pauses, resumes, stops int
	cuts                           [][2]time.Duration
}

func (d *fakeDevice) Start(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return models.AudioRef{}, d.startErr
	}
	d.starts++
	return models.AudioRef{URI: "mem://recording"}, nil
}

func (d *fakeDevice) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *fakeDevice) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	if len(d.resumeErrs) > 0 {
		err := d.resumeErrs[0]
		d.resumeErrs = d.resumeErrs[1:]
		return err
	}
	return nil
}

func (d *fakeDevice) Stop(ctx context.Context) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return models.AudioRef{URI: "mem://recording", Size: 1024}, nil
}

func (d *fakeDevice) Cut(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cutErrs) > 0 {
		err := d.cutErrs[0]
		d.cutErrs = d.cutErrs[1:]
		if err != nil {
			return models.AudioRef{}, err
		}
	}
	d.cuts = append(d.cuts, [2]time.Duration{from, to})
	if d.onCut != nil {
		d.onCut()
	}
	return models.AudioRef{URI: fmt.Sprintf("mem://chunk-%d-%d", from/time.Second, to/time.Second)}, nil
}

func (d *fakeDevice) counts() (pauses, resumes, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauses, d.resumes, d.stops
}

type tapDevice struct {
	fakeDevice
	taps int
}

func (d *tapDevice) Tap(ctx context.Context, from, to time.Duration) (models.AudioRef, error) {
	d.mu.Lock()
	d.taps++
	d.mu.Unlock()
	return d.Cut(ctx, from, to)
}

// scriptedTranscriber answers "chunk N" for chunk N. Errors listed under a
// sequence number are returned, one per call, before it succeeds.
type scriptedTranscriber struct {
	mu    sync.Mutex
	errs  map[int][]error
	calls map[int]int

	started chan int
	gate    chan struct{}
}

func newScriptedTranscriber() *scriptedTranscriber {
	return &scriptedTranscriber{errs: map[int][]error{}, calls: map[int]int{}}
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, chunk models.AudioChunk) (string, error) {
	seq := chunk.SequenceNumber
	if s.started != nil {
		s.started <- seq
	}
	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[seq]++
	if errs := s.errs[seq]; len(errs) > 0 {
		s.errs[seq] = errs[1:]
		return "", errs[0]
	}
	return fmt.Sprintf("chunk %d", seq), nil
}

func (s *scriptedTranscriber) Calls(seq int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[seq]
}

type gatedSummarizer struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	gate    chan struct{}
	summary models.Summary
	err     error
}

func (s *gatedSummarizer) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return models.Summary{}, ctx.Err()
		}
	}
	return s.summary, s.err
}

func (s *gatedSummarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeNotes struct {
	mu    sync.Mutex
	saved []models.Note
	err   error
}

func (n *fakeNotes) Save(ctx context.Context, note models.Note) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.saved = append(n.saved, note)
	return note.ID, nil
}

type fakeAudio struct {
	mu        sync.Mutex
	persisted []models.AudioRef
	released  []models.AudioRef
}

func (a *fakeAudio) Persist(ctx context.Context, sessionID string, ref models.AudioRef) (models.AudioRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.persisted = append(a.persisted, ref)
	ref.URI = "store://" + sessionID
	return ref, nil
}

func (a *fakeAudio) Release(ctx context.Context, refs ...models.AudioRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, refs...)
	return nil
}

func (a *fakeAudio) Released() []models.AudioRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AudioRef(nil), a.released...)
}

type harness struct {
	c     *Controller
	clock *fakeClock
	dev   *fakeDevice
	tr    *scriptedTranscriber
	sum   *gatedSummarizer
	notes *fakeNotes
	audio *fakeAudio
}

func testSummary() models.Summary {
	return models.Summary{
		Text:      "A lecture about cells.",
		KeyPoints: []string{"Cells divide", "DNA replicates"},
		Chapters: []models.Chapter{
			{Title: "Intro", Emoji: "📚", Position: 0},
			{Title: "Mitosis", Emoji: "🔬", Position: 0.5},
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		dev:   &fakeDevice{},
		tr:    newScriptedTranscriber(),
		sum:   &gatedSummarizer{summary: testSummary()},
		notes: &fakeNotes{},
		audio: &fakeAudio{},
	}
	h.c = NewController(Deps{
		Device:      h.dev,
		Transcriber: h.tr,
		Summarizer:  h.sum,
		Notes:       h.notes,
		Audio:       h.audio,
		Clock:       h.clock,
		Logger:      log.New(io.Discard),
	}, DefaultOptions())
	return h
}

// record advances the clock in steps, ticking after each one.
func (h *harness) record(steps ...time.Duration) {
	for _, d := range steps {
		h.clock.Advance(d)
		h.c.Tick(context.Background())
	}
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}

func mustStart(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func mustStop(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
