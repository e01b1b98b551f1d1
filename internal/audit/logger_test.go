package audit

import (
	"context"
	"errors"
	"testing"

	"pds-auth/internal/audit/domain"
	auditrepo "pds-auth/internal/audit/repository"
)

type failingRepo struct{}

func (failingRepo) Create(context.Context, *domain.AuditLog) error { return errors.New("db down") }
func (failingRepo) ListByAccount(context.Context, string, int32, int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "acc-1", ActionLoginSuccess, ResourceSession, "metadata")

	entries := repo.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.AccountID != "acc-1" {
		t.Errorf("account_id = %q, want %q", entry.AccountID, "acc-1")
	}
	if entry.Action != ActionLoginSuccess || entry.Resource != ResourceSession {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != "metadata" {
		t.Errorf("metadata = %q, want %q", entry.Metadata, "metadata")
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("entry ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NoIPExtractor(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	NewLogger(repo, nil).LogEvent(context.Background(), "", ActionLoginFailure, ResourceSession, "")

	entries := repo.All()
	if len(entries) != 1 || entries[0].IP != "unknown" {
		t.Fatalf("expected one entry with ip unknown, got %+v", entries)
	}
}

func TestLogger_LogEvent_RepoErrorIsSwallowed(t *testing.T) {
	// Must not panic or propagate.
	NewLogger(failingRepo{}, nil).LogEvent(context.Background(), "acc-1", ActionLogout, ResourceSession, "")
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.LogEvent(context.Background(), "acc-1", ActionLogout, ResourceSession, "")
	NewLogger(nil, nil).LogEvent(context.Background(), "acc-1", ActionLogout, ResourceSession, "")
}

func TestMemoryRepository_ListByAccount(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil)
	for i := 0; i < 3; i++ {
		logger.LogEvent(context.Background(), "acc-1", ActionRefresh, ResourceSession, "")
	}
	logger.LogEvent(context.Background(), "acc-2", ActionRefresh, ResourceSession, "")

	list, err := repo.ListByAccount(context.Background(), "acc-1", 2, 0)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
	rest, _ := repo.ListByAccount(context.Background(), "acc-1", 10, 2)
	if len(rest) != 1 {
		t.Errorf("offset page len = %d, want 1", len(rest))
	}
}
