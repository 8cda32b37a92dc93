package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"lecture-notes/pkg/capture"
	"lecture-notes/pkg/models"
)

// DeviceFactory opens a capture device for a new session.
type DeviceFactory func(sessionID string) (capture.Device, error)

// Manager keeps the sessions of the process and allows one recording at a
// time. Deps.Device is ignored; every session gets its own device.
type Manager struct {
	newDevice DeviceFactory
	deps      Deps
	opts      Options
	logger    *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(newDevice DeviceFactory, deps Deps, opts Options) *Manager {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Manager{
		newDevice: newDevice,
		deps:      deps,
		opts:      opts,
		logger:    deps.Logger.With("component", "sessions"),
		sessions:  make(map[string]*Controller),
	}
}

// Start opens a device and starts recording a new session.
func (m *Manager) Start(ctx context.Context) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked()
	for id, c := range m.sessions {
		if c.State().Capturing() {
			return nil, fmt.Errorf("%w: session %s", ErrSessionActive, id)
		}
	}

	id := models.NewSessionID()
	dev, err := m.newDevice(id)
	if err != nil {
		return nil, &Error{Op: "start", SessionID: id, Err: err}
	}
	deps := m.deps
	deps.Device = dev
	c := newController(id, deps, m.opts)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	m.sessions[id] = c
	m.logger.Info("Session started", "session", id)
	return c, nil
}

// pruneLocked forgets ended sessions. An ended session stays reachable for
// its snapshot until the next one starts.
func (m *Manager) pruneLocked() {
	for id, c := range m.sessions {
		if c.State().Terminal() {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return c, nil
}

// List returns snapshots of the known sessions, oldest first.
func (m *Manager) List() []models.SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]models.SessionSnapshot, 0, len(m.sessions))
	for _, c := range m.sessions {
		snaps = append(snaps, c.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].StartedAt.Before(snaps[j].StartedAt)
	})
	return snaps
}

// Shutdown stops every session that is still capturing so its recording is
// finalized and kept.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, c := range m.sessions {
		if !c.State().Capturing() {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			m.logger.Error("Failed to stop session on shutdown", "session", id, "err", err)
		}
	}
}
