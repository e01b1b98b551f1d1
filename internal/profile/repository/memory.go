package repository

import (
	"context"
	"sync"

	"pds-auth/internal/profile/domain"
)

// MemoryRepository is an in-process profile store guarded by a mutex, used by tests.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	// Err, when set, is returned by every call. Lets tests exercise degraded lookups.
	Err error
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*domain.Profile)}
}

func (m *MemoryRepository) GetByAccountID(_ context.Context, accountID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) Upsert(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *p
	m.profiles[p.AccountID] = &cp
	return nil
}

// SetErr sets Err under the lock.
func (m *MemoryRepository) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
