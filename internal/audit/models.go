// Package audit constructs and emits the outbound audit-trail events that
// describe the outcome of processing one ingress event.
package audit

// TransitionType classifies the processing outcome an audit event reports.
type TransitionType string

const (
	// TransitionApplied: the transition was legal and persisted.
	TransitionApplied TransitionType = "applied"
	// TransitionIgnored: the message was dropped without a state change.
	TransitionIgnored TransitionType = "ignored"
)

// Outbound audit event names.
const (
	EventTransitionApplied = "ACCOUNT_INTERVENTION_TRANSITION_APPLIED"
	EventTransitionIgnored = "ACCOUNT_INTERVENTION_TRANSITION_IGNORED"
)

// Ignore reasons carried on ignored-transition events.
const (
	ReasonStale          = "predates latest applied intervention"
	ReasonFutureEvent    = "received event is in the future"
	ReasonAccountDeleted = "target account deleted"
	ReasonNotAllowed     = "transition not allowed from current state"
	ReasonLowConfidence  = "level of confidence below P2"
	ReasonRecordAnomaly  = "account record anomaly"
)

// DescriptionUserAction is the description used for user-led triggers; fraud
// triggers carry the applied intervention's canonical name instead.
const DescriptionUserAction = "USER_LED_ACTION"

// Derived account statuses exposed to downstream consumers.
const (
	StatusActive               = "ACTIVE"
	StatusSuspended            = "SUSPENDED"
	StatusPermanentlySuspended = "PERMANENTLY_SUSPENDED"
	StatusDeleted              = "DELETED"
)

// Derived user actions required to clear the current status.
const (
	ActionResetPassword   = "RESET_PASSWORD"
	ActionReproveIdentity = "REPROVE_IDENTITY"
	ActionResetAndReprove = "RESET_PASSWORD_AND_REPROVE_IDENTITY"
)

// Event is the outbound wire shape.
type Event struct {
	EventName        string     `json:"event_name"`
	Timestamp        int64      `json:"timestamp"`
	EventTimestampMs int64      `json:"event_timestamp_ms"`
	ComponentID      string     `json:"component_id"`
	User             User       `json:"user"`
	Extensions       Extensions `json:"extensions"`
}

type User struct {
	UserID string `json:"user_id"`
}

type Extensions struct {
	TriggerEventID         string   `json:"trigger_event_id,omitempty"`
	TriggerEvent           string   `json:"trigger_event"`
	Description            string   `json:"description"`
	Reason                 string   `json:"reason,omitempty"`
	AllowableInterventions []string `json:"allowable_interventions"`
	State                  string   `json:"state"`
	Action                 string   `json:"action,omitempty"`
}
