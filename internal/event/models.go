// Package event defines the ingress event wire model and its validation
// rules. Events arrive once per queue message, are never mutated, and are
// discarded after processing.
package event

// Canonical ingress event names. Fraud interventions all arrive under a
// single event name and carry the specific intervention as a numeric code;
// user-led remediation events are already canonical.
const (
	NameIntervention     = "TICF_ACCOUNT_INTERVENTION"
	NamePasswordReset    = "AUTH_PASSWORD_RESET_SUCCESSFUL"
	NameIdentityReproved = "IPV_IDENTITY_ISSUED"
)

// LevelOfConfidenceP2 is the only confidence level at which an identity
// reproval is accepted.
const LevelOfConfidenceP2 = "P2"

// IngressEvent is the inbound wire shape.
type IngressEvent struct {
	EventID          string      `json:"event_id,omitempty"`
	EventName        string      `json:"event_name"`
	Timestamp        int64       `json:"timestamp"`
	EventTimestampMs int64       `json:"event_timestamp_ms,omitempty"`
	ComponentID      string      `json:"component_id"`
	User             User        `json:"user"`
	Extensions       *Extensions `json:"extensions,omitempty"`
}

type User struct {
	UserID string `json:"user_id"`
}

// Extensions carries one of two mutually exclusive shapes: a fraud
// intervention block, or the user-action confidence fields.
type Extensions struct {
	Intervention *Intervention `json:"intervention,omitempty"`

	LevelOfConfidence string `json:"level_of_confidence,omitempty"`
	CiFail            *bool  `json:"ci_fail,omitempty"`
	HasMitigations    *bool  `json:"has_mitigations,omitempty"`
}

type Intervention struct {
	InterventionCode       string `json:"intervention_code"`
	InterventionReason     string `json:"intervention_reason"`
	OriginatingComponentID string `json:"originating_component_id,omitempty"`
	PredecessorID          string `json:"intervention_predecessor_id,omitempty"`
	RequesterID            string `json:"requester_id,omitempty"`
}

// IsIntervention reports whether the event is a fraud intervention.
func (e *IngressEvent) IsIntervention() bool {
	return e.EventName == NameIntervention
}

// IsUserAction reports whether the event is a user-led remediation.
func (e *IngressEvent) IsUserAction() bool {
	return e.EventName == NamePasswordReset || e.EventName == NameIdentityReproved
}

// TimestampMillis returns the event time in milliseconds, preferring the
// millisecond field when the producer supplied one.
func (e *IngressEvent) TimestampMillis() int64 {
	if e.EventTimestampMs > 0 {
		return e.EventTimestampMs
	}
	return e.Timestamp * 1000
}
