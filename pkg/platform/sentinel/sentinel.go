package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so the processor can classify outcomes without
// knowing which backend produced them.
//
// These represent factual states about resources, not validation failures:
// - ErrConflict: a conditional write lost its optimistic check
// - ErrTooManyRecords: store invariant violation, more than one record per account
// - ErrUnavailable: backend temporarily unavailable
//
// Record absence is not an error here: Store.Get models it as (nil, nil).
var (
	ErrConflict       = errors.New("conflict")
	ErrTooManyRecords = errors.New("too many records")
	ErrUnavailable    = errors.New("unavailable")
)
