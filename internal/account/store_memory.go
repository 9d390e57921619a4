package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vigil/pkg/platform/sentinel"
)

// InMemoryStore implements Store with a map. It backs unit tests and local
// development; production uses RedisStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	copied := *r
	copied.History = append([]string(nil), r.History...)
	return &copied, nil
}

func (s *InMemoryStore) Apply(_ context.Context, userID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		r = &Record{AuditLevel: AuditLevelStandard}
		s.records[userID] = r
	}

	switch p := patch.(type) {
	case InterventionPatch:
		if r.AppliedAt != p.ExpectedAppliedAt {
			return fmt.Errorf("applied-at moved from %d: %w", p.ExpectedAppliedAt, sentinel.ErrConflict)
		}
		r.Blocked = p.State.Blocked
		r.Suspended = p.State.Suspended
		r.ResetPassword = p.State.ResetPassword
		r.ReproveIdentity = p.State.ReproveIdentity
		r.Intervention = p.Intervention
		r.SentAt = p.SentAt
		r.AppliedAt = p.AppliedAt
		r.UpdatedAt = p.UpdatedAt
		r.History = append(r.History, p.HistoryEntry)
	case PasswordResetPatch:
		if r.AppliedAt != p.ExpectedAppliedAt {
			return fmt.Errorf("applied-at moved from %d: %w", p.ExpectedAppliedAt, sentinel.ErrConflict)
		}
		r.Blocked = p.State.Blocked
		r.Suspended = p.State.Suspended
		r.ResetPassword = p.State.ResetPassword
		r.ReproveIdentity = p.State.ReproveIdentity
		r.UpdatedAt = p.UpdatedAt
		r.ResetPasswordAt = p.ResetPasswordAt
	case IdentityReprovePatch:
		if r.AppliedAt != p.ExpectedAppliedAt {
			return fmt.Errorf("applied-at moved from %d: %w", p.ExpectedAppliedAt, sentinel.ErrConflict)
		}
		r.Blocked = p.State.Blocked
		r.Suspended = p.State.Suspended
		r.ResetPassword = p.State.ResetPassword
		r.ReproveIdentity = p.State.ReproveIdentity
		r.UpdatedAt = p.UpdatedAt
		r.ReprovedIdentityAt = p.ReprovedIdentityAt
	default:
		return fmt.Errorf("unknown patch type %T", patch)
	}
	return nil
}

func (s *InMemoryStore) MarkDeleted(_ context.Context, userID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		r = &Record{AuditLevel: AuditLevelStandard}
		s.records[userID] = r
	}
	r.IsAccountDeleted = true
	r.DeletedAt = time.Now().UnixMilli()
	return nil
}
