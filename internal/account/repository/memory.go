package repository

import (
	"context"
	"sync"
	"time"

	"pds-auth/internal/account/domain"
)

// MemoryRepository is an in-process account store guarded by a mutex, used by tests.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*domain.Account)}
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) Create(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *MemoryRepository) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = hash
		a.UpdatedAt = at
	}
	return nil
}

func (m *MemoryRepository) SetActive(_ context.Context, id string, active bool, at time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	a.Active = active
	a.UpdatedAt = at
	cp := *a
	return &cp, nil
}
