package account

import (
	"context"
	"time"

	"vigil/internal/graph"
)

// Patch is a closed set of typed partial updates. Each variant carries
// exactly the fields it sets; store implementations translate a variant into
// their native partial-update syntax.
//
// Every variant carries ExpectedAppliedAt, the AppliedAt value the caller
// read before deciding to write (zero when no record existed). Stores reject
// the write with sentinel.ErrConflict when the stored value has moved, which
// closes the read-compare-write race between concurrent events for the same
// account.
type Patch interface {
	isPatch()
}

// InterventionPatch applies a fraud intervention: state flags, intervention
// bookkeeping, and one appended history entry.
type InterventionPatch struct {
	State             graph.AccountState
	Intervention      string
	SentAt            int64
	AppliedAt         int64
	UpdatedAt         int64
	HistoryEntry      string
	ExpectedAppliedAt int64
}

// PasswordResetPatch applies a user-led password reset success.
type PasswordResetPatch struct {
	State             graph.AccountState
	UpdatedAt         int64
	ResetPasswordAt   int64
	ExpectedAppliedAt int64
}

// IdentityReprovePatch applies a user-led identity reproval success.
type IdentityReprovePatch struct {
	State              graph.AccountState
	UpdatedAt          int64
	ReprovedIdentityAt int64
	ExpectedAppliedAt  int64
}

func (InterventionPatch) isPatch()    {}
func (PasswordResetPatch) isPatch()   {}
func (IdentityReprovePatch) isPatch() {}

// Store is the per-account persistence boundary.
type Store interface {
	// Get returns the record for an account, or (nil, nil) when no record
	// exists. Absence is first-class: the processor applies the okay
	// default exactly once, at its single call site.
	Get(ctx context.Context, userID string) (*Record, error)

	// Apply writes one patch conditionally. Returns sentinel.ErrConflict
	// when the optimistic AppliedAt check fails.
	Apply(ctx context.Context, userID string, patch Patch) error

	// MarkDeleted flags the account deleted and schedules the record for
	// expiry after the retention period.
	MarkDeleted(ctx context.Context, userID string, retention time.Duration) error
}
