package repository

import (
	"context"
	"sort"
	"sync"

	"pds-auth/internal/audit/domain"
)

// MemoryRepository keeps audit logs in memory, used by tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryRepository) ListByAccount(_ context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range m.entries {
		if e.AccountID == accountID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// All returns a copy of every stored entry in insertion order.
func (m *MemoryRepository) All() []domain.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditLog, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}
