package graph

// State node names.
const (
	StateOkay         = "okay"
	StateSuspended    = "suspended"
	StateBlocked      = "blocked"
	StateNeedsPWReset = "password_reset_required"
	StateNeedsIDProof = "identity_reprove_required"
	StateNeedsBoth    = "password_reset_and_identity_reprove_required"
)

// Ingress event names.
const (
	EventSuspend             EventName = "FRAUD_SUSPEND_ACCOUNT"
	EventUnsuspend           EventName = "FRAUD_UNSUSPEND_ACCOUNT"
	EventBlock               EventName = "FRAUD_BLOCK_ACCOUNT"
	EventForcePWReset        EventName = "FRAUD_FORCED_USER_PASSWORD_RESET"
	EventForceIDReprove      EventName = "FRAUD_FORCED_USER_IDENTITY_REPROVE"
	EventForceBoth           EventName = "FRAUD_FORCED_USER_PASSWORD_RESET_AND_IDENTITY_REPROVE"
	EventUnblock             EventName = "FRAUD_UNBLOCK_ACCOUNT"
	EventPasswordResetDone   EventName = "AUTH_PASSWORD_RESET_SUCCESSFUL"
	EventIdentityReproveDone EventName = "IPV_IDENTITY_ISSUED"
)

// Fraud intervention codes as carried on the wire.
const (
	CodeSuspend        Code = "01"
	CodeUnsuspend      Code = "02"
	CodeBlock          Code = "03"
	CodeForcePWReset   Code = "04"
	CodeForceIDReprove Code = "05"
	CodeForceBoth      Code = "06"
	CodeUnblock        Code = "07"
)

// Internal user-action codes. These never appear in outbound
// allowable-intervention lists; they exist so each (state, user event)
// resolution has a distinct edge with its own destination.
const (
	CodePWResetDone           Code = "91"
	CodeIDReproveDone         Code = "92"
	CodePWResetDoneFromBoth   Code = "93"
	CodeIDReproveDoneFromBoth Code = "94"
)

// Intervention names used in audit output and history decoding.
const (
	InterventionSuspend        = "ACCOUNT_SUSPENDED"
	InterventionUnsuspend      = "ACCOUNT_UNSUSPENDED"
	InterventionBlock          = "ACCOUNT_BLOCKED"
	InterventionForcePWReset   = "FORCED_USER_PASSWORD_RESET"
	InterventionForceIDReprove = "FORCED_USER_IDENTITY_REPROVE"
	InterventionForceBoth      = "FORCED_USER_PASSWORD_RESET_AND_IDENTITY_REPROVE"
	InterventionUnblock        = "ACCOUNT_UNBLOCKED"
)

func defaultNodes() map[string]AccountState {
	return map[string]AccountState{
		StateOkay:         {},
		StateSuspended:    {Suspended: true},
		StateBlocked:      {Blocked: true},
		StateNeedsPWReset: {Suspended: true, ResetPassword: true},
		StateNeedsIDProof: {Suspended: true, ReproveIdentity: true},
		StateNeedsBoth:    {Suspended: true, ResetPassword: true, ReproveIdentity: true},
	}
}

func defaultEdges() map[Code]Edge {
	return map[Code]Edge{
		CodeSuspend:        {To: StateSuspended, Event: EventSuspend, Intervention: InterventionSuspend},
		CodeUnsuspend:      {To: StateOkay, Event: EventUnsuspend, Intervention: InterventionUnsuspend},
		CodeBlock:          {To: StateBlocked, Event: EventBlock, Intervention: InterventionBlock},
		CodeForcePWReset:   {To: StateNeedsPWReset, Event: EventForcePWReset, Intervention: InterventionForcePWReset},
		CodeForceIDReprove: {To: StateNeedsIDProof, Event: EventForceIDReprove, Intervention: InterventionForceIDReprove},
		CodeForceBoth:      {To: StateNeedsBoth, Event: EventForceBoth, Intervention: InterventionForceBoth},
		CodeUnblock:        {To: StateOkay, Event: EventUnblock, Intervention: InterventionUnblock},

		CodePWResetDone:           {To: StateOkay, Event: EventPasswordResetDone},
		CodeIDReproveDone:         {To: StateOkay, Event: EventIdentityReproveDone},
		CodePWResetDoneFromBoth:   {To: StateNeedsIDProof, Event: EventPasswordResetDone},
		CodeIDReproveDoneFromBoth: {To: StateNeedsPWReset, Event: EventIdentityReproveDone},
	}
}

func defaultAdjacency() map[string][]Code {
	return map[string][]Code{
		StateOkay:         {CodeSuspend, CodeBlock, CodeForcePWReset, CodeForceIDReprove, CodeForceBoth},
		StateSuspended:    {CodeUnsuspend, CodeBlock, CodeForcePWReset, CodeForceIDReprove, CodeForceBoth},
		StateBlocked:      {CodeUnblock},
		StateNeedsPWReset: {CodeSuspend, CodeUnsuspend, CodeBlock, CodeForceIDReprove, CodeForceBoth, CodePWResetDone},
		StateNeedsIDProof: {CodeSuspend, CodeUnsuspend, CodeBlock, CodeForcePWReset, CodeForceBoth, CodeIDReproveDone},
		StateNeedsBoth:    {CodeSuspend, CodeUnsuspend, CodeBlock, CodeForcePWReset, CodeForceIDReprove, CodePWResetDoneFromBoth, CodeIDReproveDoneFromBoth},
	}
}
