package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/tbxark/onboard/types"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionStore owns session lifetime. Get returns ErrSessionNotFound for an
// unknown id.
type SessionStore interface {
	Create(ctx context.Context, s *types.Session) error
	Get(ctx context.Context, id string) (*types.Session, error)
	Put(ctx context.Context, s *types.Session) error
}

// TurnRecorder persists every processed turn. Errors are logged by the
// caller and never fail the turn.
type TurnRecorder interface {
	Record(ctx context.Context, rec types.TurnRecord) error
}

// MemorySessionStore keeps copies of sessions in memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*types.Session)}
}

func (m *MemorySessionStore) Create(ctx context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrSessionExists
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (*types.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) Put(ctx context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
