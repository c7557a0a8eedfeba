// Package session tracks per-visitor state: the loaded dataset, the
// active filter configuration, and saved audiences. State lives in memory
// only and expires after a period of inactivity.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"permitscope/internal/engine"
	"permitscope/internal/metrics"
	"permitscope/internal/models"
)

var (
	ErrAudienceExists   = errors.New("audience already exists")
	ErrAudienceNotFound = errors.New("audience not found")
	ErrNoDataset        = errors.New("no dataset loaded")
)

// State is one visitor's working context.
type State struct {
	ID string

	mu        sync.Mutex
	dataset   *models.Dataset
	filters   engine.Filters
	audiences map[string]*models.Audience
	lastSeen  time.Time
}

// Dataset returns the currently loaded dataset, or nil.
func (s *State) Dataset() *models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// SetDataset replaces the loaded dataset and clears the active filters.
// Saved audiences survive a reload.
func (s *State) SetDataset(ds *models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
	s.filters = engine.Filters{}
}

// Filters returns the active filter configuration.
func (s *State) Filters() engine.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters replaces the active filter configuration.
func (s *State) SetFilters(f engine.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// SaveAudience stores the given property IDs under a name and resets the
// active filters so the next build starts fresh against the remaining
// records. Names must be unique within the session.
func (s *State) SaveAudience(name string, propertyIDs []string, now time.Time) (*models.Audience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	if _, ok := s.audiences[name]; ok {
		return nil, ErrAudienceExists
	}
	ids := make([]string, len(propertyIDs))
	copy(ids, propertyIDs)
	a := &models.Audience{Name: name, PropertyIDs: ids, CreatedAt: now}
	if s.audiences == nil {
		s.audiences = make(map[string]*models.Audience)
	}
	s.audiences[name] = a
	s.filters = engine.Filters{}
	return a, nil
}

// Audience returns a saved audience by name.
func (s *State) Audience(name string) (*models.Audience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.audiences[name]
	if !ok {
		return nil, ErrAudienceNotFound
	}
	return a, nil
}

// Audiences returns the saved audiences ordered by name.
func (s *State) Audiences() []*models.Audience {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Audience, 0, len(s.audiences))
	for _, a := range s.audiences {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeleteAudience removes one saved audience by name.
func (s *State) DeleteAudience(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audiences[name]; !ok {
		return ErrAudienceNotFound
	}
	delete(s.audiences, name)
	return nil
}

// ClearAudiences removes every saved audience and returns how many there
// were.
func (s *State) ClearAudiences() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.audiences)
	s.audiences = nil
	return n
}

// ExcludedIDs returns the union of every saved audience's property IDs.
// Builds exclude these so each audience carves off a disjoint slice of the
// dataset.
func (s *State) ExcludedIDs() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for _, a := range s.audiences {
		for _, id := range a.PropertyIDs {
			out[id] = struct{}{}
		}
	}
	return out
}

// Manager owns the session table. Sessions idle past the TTL are evicted
// lazily on the next lookup.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*State
	clock    clockwork.Clock
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewManager creates a session manager. A non-positive ttl disables
// eviction.
func NewManager(clock clockwork.Clock, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		clock:    clock,
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
	}
}

// GetOrCreate returns the session for id, creating a fresh one when the id
// is empty, unknown, or expired. The returned state's ID is what the
// caller should hand back to the visitor.
func (m *Manager) GetOrCreate(id string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.evictLocked(now)

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			s.mu.Lock()
			s.lastSeen = now
			s.mu.Unlock()
			return s
		}
	}

	s := &State{ID: uuid.NewString(), lastSeen: now}
	m.sessions[s.ID] = s
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	if m.logger != nil {
		m.logger.Debug("session created", "session_id", s.ID)
	}
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) evictLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	evicted := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastSeen)
		s.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		if m.metrics != nil {
			m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		}
		if m.logger != nil {
			m.logger.Debug("sessions evicted", "count", evicted)
		}
	}
}
