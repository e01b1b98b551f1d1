package repository

import (
	"context"
	"sync"
	"time"

	"pds-auth/internal/session/domain"
)

// MemoryRepository is an in-process session store guarded by a mutex. It backs unit tests and
// single-instance development setups.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session // by token hash
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

func (m *MemoryRepository) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.TokenHash]; ok {
		return ErrTokenCollision
	}
	cp := *s
	m.sessions[s.TokenHash] = &cp
	return nil
}

func (m *MemoryRepository) FindByTokenHash(_ context.Context, hash string, now time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok || !s.ActiveAt(now) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) DeleteByTokenHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func (m *MemoryRepository) DeleteAllByAccount(_ context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.sessions {
		if s.AccountID == accountID {
			delete(m.sessions, h)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) Rotate(_ context.Context, oldHash string, next *domain.Session, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sessions[oldHash]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, oldHash)
	if !old.ActiveAt(now) || old.AccountID != next.AccountID {
		return ErrSessionNotFound
	}
	if _, ok := m.sessions[next.TokenHash]; ok {
		return ErrTokenCollision
	}
	cp := *next
	m.sessions[next.TokenHash] = &cp
	return nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.sessions {
		if !s.ActiveAt(now) {
			delete(m.sessions, h)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CountByAccount returns the number of stored sessions owned by accountID.
func (m *MemoryRepository) CountByAccount(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.AccountID == accountID {
			n++
		}
	}
	return n
}
