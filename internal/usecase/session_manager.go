package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"TradeSync/internal/domain/models"
	drepo "TradeSync/internal/domain/repository"
	"TradeSync/internal/service/stream"
	"TradeSync/pkg/logger"
)

// SessionManager tracks mounted chart sessions by id. Mount and unmount
// mirror a dashboard page opening and closing a chart.
type SessionManager struct {
	api      drepo.SnapshotAPI
	registry SymbolRegistry
	bus      *stream.Bus
	notifier *Notifier
	log      *logger.Logger

	mu       sync.Mutex
	nextID   int
	sessions map[int]*ChartSession
}

// NewSessionManager creates an empty manager.
func NewSessionManager(api drepo.SnapshotAPI, registry SymbolRegistry, bus *stream.Bus, notifier *Notifier, log *logger.Logger) *SessionManager {
	return &SessionManager{
		api:      api,
		registry: registry,
		bus:      bus,
		notifier: notifier,
		log:      log,
		nextID:   1,
		sessions: make(map[int]*ChartSession),
	}
}

// Mount creates a session for symbol, subscribes it and loads the first
// snapshot. The session is registered even when the initial load fails;
// the error shows up in the session state.
func (m *SessionManager) Mount(ctx context.Context, symbol string) (*ChartSession, error) {
	if symbol == "" {
		return nil, fmt.Errorf("session manager: symbol is required")
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	s := NewChartSession(id, symbol, m.api, m.registry, m.bus, m.notifier, m.log)
	m.sessions[id] = s
	m.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		m.log.Warn("session mounted with load error",
			logger.Int("session", id),
			logger.String("symbol", symbol),
			logger.Error(err),
		)
	}
	return s, nil
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id int) (*ChartSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns views of all mounted sessions ordered by id.
func (m *SessionManager) List() []models.SessionView {
	m.mu.Lock()
	sessions := make([]*ChartSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID() < sessions[j].ID() })
	views := make([]models.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}
	return views
}

// Unmount closes and forgets a session.
func (m *SessionManager) Unmount(id int) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Shutdown closes every session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*ChartSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[int]*ChartSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
