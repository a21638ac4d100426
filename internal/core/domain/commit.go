package domain

import "time"

// TransitionCommit is the single conceptual commit of the workflow: a stage
// (and optionally field) mutation plus the audit events that record it. The
// ledger persists everything or nothing; the new stage is never observable
// without its events.
type TransitionCommit struct {
	DocumentID string

	// ExpectedSequence is the audit sequence the caller observed. The
	// ledger rejects the commit with ErrStaleTransition when the log has
	// advanced past it. Events carry pre-assigned sequence numbers
	// ExpectedSequence+1 .. ExpectedSequence+len(Events).
	ExpectedSequence int64

	Stage             Stage
	Vendor            string
	OverallConfidence float64
	TransitionAt      time.Time

	// FieldUpserts replaces or creates the named fields alongside the
	// stage update. Nil means fields are untouched.
	FieldUpserts []Field

	Events []AuditEvent
}
