package model

// ApplyOutcome classifies the result of one application attempt.
type ApplyOutcome string

const (
	ApplySuccess           ApplyOutcome = "success"
	ApplyAlreadyApplied    ApplyOutcome = "already_applied"
	ApplyRejected          ApplyOutcome = "rejected"
	ApplyRateLimited       ApplyOutcome = "rate_limited"
	ApplyExpiredCredential ApplyOutcome = "expired_credential"
	ApplyTransportError    ApplyOutcome = "transport_error"
	ApplyConfigError       ApplyOutcome = "config_error"
)

// OK reports whether the outcome counts as a submitted application.
// A 409 ("already applied") is success for this system's purposes, but the
// distinction is preserved in the outcome itself.
func (o ApplyOutcome) OK() bool {
	return o == ApplySuccess || o == ApplyAlreadyApplied
}

// ApplyResult carries the classified outcome plus provider detail.
type ApplyResult struct {
	Outcome  ApplyOutcome
	Message  string // provider-supplied description for rejections
	Location string // reference to the created negotiation (201 only)
}
