package event

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ValidationError marks an event as malformed or ineligible. It is a
// terminal outcome: the message is dropped, never retried.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "event validation: " + e.Reason + ": " + e.Err.Error()
	}
	return "event validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the schema of an ingress event. The two extension shapes
// are mutually exclusive: a fraud intervention must not carry user-action
// fields and an identity reproval must not carry an intervention block.
func Validate(e *IngressEvent) error {
	if err := validation.ValidateStruct(e,
		validation.Field(&e.EventName, validation.Required,
			validation.In(NameIntervention, NamePasswordReset, NameIdentityReproved)),
		validation.Field(&e.Timestamp, validation.Required),
	); err != nil {
		return &ValidationError{Reason: "event envelope", Err: err}
	}
	if err := validation.ValidateStruct(&e.User,
		validation.Field(&e.User.UserID, validation.Required),
	); err != nil {
		return &ValidationError{Reason: "event user", Err: err}
	}

	switch e.EventName {
	case NameIntervention:
		return validateInterventionShape(e)
	case NameIdentityReproved:
		return validateIdentityReprovedShape(e)
	case NamePasswordReset:
		return validatePasswordResetShape(e)
	}
	return nil
}

func validateInterventionShape(e *IngressEvent) error {
	ext := e.Extensions
	if ext == nil || ext.Intervention == nil {
		return &ValidationError{Reason: "intervention event requires an intervention extension"}
	}
	if ext.LevelOfConfidence != "" || ext.CiFail != nil || ext.HasMitigations != nil {
		return &ValidationError{Reason: "intervention event must not carry user-action fields"}
	}
	iv := ext.Intervention
	if err := validation.ValidateStruct(iv,
		validation.Field(&iv.InterventionCode, validation.Required),
		validation.Field(&iv.InterventionReason, validation.Required),
	); err != nil {
		return &ValidationError{Reason: "intervention extension", Err: err}
	}
	return nil
}

func validateIdentityReprovedShape(e *IngressEvent) error {
	ext := e.Extensions
	if ext == nil {
		return &ValidationError{Reason: "identity reproval requires user-action fields"}
	}
	if ext.Intervention != nil {
		return &ValidationError{Reason: "identity reproval must not carry an intervention block"}
	}
	if ext.LevelOfConfidence == "" || ext.CiFail == nil || ext.HasMitigations == nil {
		return &ValidationError{Reason: "identity reproval requires level_of_confidence, ci_fail and has_mitigations"}
	}
	return nil
}

func validatePasswordResetShape(e *IngressEvent) error {
	if e.Extensions != nil && e.Extensions.Intervention != nil {
		return &ValidationError{Reason: "password reset success must not carry an intervention block"}
	}
	return nil
}

// ValidateInterventionEvent additionally requires the intervention code to
// parse as an integer. Codes travel as strings, so a non-numeric code passes
// the broad schema but can never resolve a transition.
func ValidateInterventionEvent(e *IngressEvent) error {
	if e.Extensions == nil || e.Extensions.Intervention == nil {
		return &ValidationError{Reason: "intervention event requires an intervention extension"}
	}
	iv := e.Extensions.Intervention
	if err := validation.ValidateStruct(iv,
		validation.Field(&iv.InterventionCode, validation.Required, is.Digit),
		validation.Field(&iv.InterventionReason, validation.Required),
	); err != nil {
		return &ValidationError{Reason: "intervention code", Err: err}
	}
	return nil
}
