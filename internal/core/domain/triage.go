package domain

import "fmt"

// TriageOutcome is the workflow decision for a freshly extracted document.
type TriageOutcome struct {
	TargetStage Stage    `json:"target_stage"`
	Priority    Priority `json:"priority"`
}

// QueueFilter narrows the review queue. The confidence range is inclusive on
// both ends; Search matches vendor name or document/invoice identifier
// case-insensitively. The zero value is NOT a valid filter; use
// DefaultQueueFilter for the match-everything case.
type QueueFilter struct {
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	Search        string  `json:"search,omitempty"`
}

func DefaultQueueFilter() QueueFilter {
	return QueueFilter{MinConfidence: 0, MaxConfidence: 100}
}

// Validate rejects malformed ranges at the query boundary.
func (f QueueFilter) Validate() error {
	if f.MinConfidence > f.MaxConfidence {
		return WrapError(ErrInvalidFilter, "validate queue filter",
			fmt.Errorf("confidence range [%.0f, %.0f] has lo > hi", f.MinConfidence, f.MaxConfidence))
	}
	if f.MinConfidence < 0 || f.MaxConfidence > 100 {
		return WrapError(ErrInvalidFilter, "validate queue filter",
			fmt.Errorf("confidence range [%.0f, %.0f] outside [0, 100]", f.MinConfidence, f.MaxConfidence))
	}
	return nil
}

// HistoryQuery paginates the document history listing, optionally narrowed
// to a single stage.
type HistoryQuery struct {
	Stage  *Stage `json:"stage,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func (q HistoryQuery) Normalize() HistoryQuery {
	out := q
	if out.Limit <= 0 || out.Limit > 200 {
		out.Limit = 20
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}
