// Package account owns the persisted per-account record and its stores.
// There is exactly one record per account. Records are created on the first
// applied event and never physically deleted: deletion is a flag plus a
// retention TTL set by the deletion consumer.
package account

import "vigil/internal/graph"

// AuditLevelStandard is the default audit level for new records.
const AuditLevelStandard = "standard"

// Record is the durable state for one account. All timestamps are Unix
// milliseconds.
type Record struct {
	Blocked         bool
	Suspended       bool
	ResetPassword   bool
	ReproveIdentity bool

	// SentAt is the source timestamp of the last applied intervention;
	// AppliedAt is when this system applied it. Together they drive the
	// staleness guard.
	SentAt    int64
	AppliedAt int64
	UpdatedAt int64

	Intervention     string
	IsAccountDeleted bool
	DeletedAt        int64

	// History is the append-only, codec-encoded intervention trail.
	History []string

	AuditLevel string

	ResetPasswordAt    int64
	ReprovedIdentityAt int64
}

// State projects the record onto its graph state.
func (r *Record) State() graph.AccountState {
	return graph.AccountState{
		Blocked:         r.Blocked,
		Suspended:       r.Suspended,
		ResetPassword:   r.ResetPassword,
		ReproveIdentity: r.ReproveIdentity,
	}
}
