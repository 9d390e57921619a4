package audit

import (
	"time"

	"vigil/internal/engine"
	"vigil/internal/event"
	"vigil/internal/graph"
)

// Builder constructs outbound audit events from an ingress event and the
// engine's output.
type Builder struct {
	graph       *graph.Graph
	componentID string
}

func NewBuilder(g *graph.Graph, componentID string) *Builder {
	return &Builder{graph: g, componentID: componentID}
}

// Build constructs the audit event for one processing outcome. The second
// return is false when the event is suppressed: a user-led no-op on an
// already-clean account is not audit-worthy.
//
// out may be nil when the pipeline never reached the engine (validation and
// guard failures); reason is empty for applied transitions.
func (b *Builder) Build(t TransitionType, reason string, ev *event.IngressEvent, out *engine.Output, deleted bool, now time.Time) (*Event, bool) {
	if out != nil && ev.IsUserAction() && t == TransitionIgnored && isClean(out.NewState) {
		return nil, false
	}

	name := EventTransitionApplied
	if t == TransitionIgnored {
		name = EventTransitionIgnored
	}

	description := DescriptionUserAction
	if !ev.IsUserAction() {
		description = b.interventionDescription(ev, out)
	}

	ext := Extensions{
		TriggerEventID: ev.EventID,
		TriggerEvent:   ev.EventName,
		Description:    description,
		Reason:         reason,
	}
	if out != nil {
		ext.AllowableInterventions = b.filterAllowable(out.NextAllowable)
		ext.State, ext.Action = DeriveStatus(out.NewState, deleted)
	} else {
		ext.AllowableInterventions = []string{}
		ext.State, ext.Action = DeriveStatus(graph.AccountState{}, deleted)
	}

	return &Event{
		EventName:        name,
		Timestamp:        now.Unix(),
		EventTimestampMs: now.UnixMilli(),
		ComponentID:      b.componentID,
		User:             User{UserID: ev.User.UserID},
		Extensions:       ext,
	}, true
}

// interventionDescription prefers the applied intervention name from the
// engine; for ignored interventions it falls back to the name mapped from
// the wire code so the trail still says what was attempted.
func (b *Builder) interventionDescription(ev *event.IngressEvent, out *engine.Output) string {
	if out != nil && out.InterventionName != "" {
		return out.InterventionName
	}
	if ev.Extensions != nil && ev.Extensions.Intervention != nil {
		if name, ok := b.graph.InterventionName(graph.Code(ev.Extensions.Intervention.InterventionCode)); ok {
			return name
		}
	}
	return ev.EventName
}

// filterAllowable keeps only codes that map to a named intervention;
// internal user-action codes are not externally visible.
func (b *Builder) filterAllowable(codes []graph.Code) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := b.graph.InterventionName(code); ok {
			out = append(out, string(code))
		}
	}
	return out
}

func isClean(s graph.AccountState) bool {
	return !s.Blocked && !s.Suspended && !s.ResetPassword && !s.ReproveIdentity
}

// DeriveStatus maps an account state onto the externally visible
// {status, required action} pair. Precedence order matters: deletion beats
// blocking beats suspension.
func DeriveStatus(s graph.AccountState, deleted bool) (string, string) {
	switch {
	case deleted:
		return StatusDeleted, ""
	case s.Blocked:
		return StatusPermanentlySuspended, ""
	case !s.Suspended:
		return StatusActive, ""
	case s.ResetPassword && s.ReproveIdentity:
		return StatusActive, ActionResetAndReprove
	case s.ResetPassword:
		return StatusActive, ActionResetPassword
	case s.ReproveIdentity:
		return StatusActive, ActionReproveIdentity
	default:
		return StatusSuspended, ""
	}
}
