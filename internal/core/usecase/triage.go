package usecase

import (
	"sort"
	"strings"

	"github.com/invopilot/docflow/internal/core/domain"
)

// invoiceIdentifierField is the field the search filter matches in addition
// to the vendor name and document id.
const invoiceIdentifierField = "invoice_number"

// TriageEngine classifies extraction results and shapes the review-queue
// view. It is pure policy over in-memory data and never mutates documents.
type TriageEngine struct {
	thresholds domain.Thresholds
}

func NewTriageEngine(thresholds domain.Thresholds) *TriageEngine {
	return &TriageEngine{thresholds: thresholds.Normalize()}
}

func (t *TriageEngine) Thresholds() domain.Thresholds { return t.thresholds }

// Classify applies the auto-approve gate to a fresh extraction result.
func (t *TriageEngine) Classify(res domain.ExtractionResult) domain.TriageOutcome {
	target := domain.StageNeedsReview
	if res.OverallConfidence >= t.thresholds.AutoApprove {
		target = domain.StageApproved
	}
	return domain.TriageOutcome{
		TargetStage: target,
		Priority:    t.thresholds.PriorityFor(res.OverallConfidence),
	}
}

// Queue filters and orders review-queue candidates: ascending confidence,
// then oldest first, so the most urgent items surface at the top. The input
// is expected to already be restricted to NeedsReview documents; anything
// else is dropped rather than surfaced.
func (t *TriageEngine) Queue(docs []domain.Document, filter domain.QueueFilter) ([]domain.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if d.Stage != domain.StageNeedsReview {
			continue
		}
		if d.OverallConfidence < filter.MinConfidence || d.OverallConfidence > filter.MaxConfidence {
			continue
		}
		if !matchesSearch(d, filter.Search) {
			continue
		}
		d.Priority = t.thresholds.PriorityFor(d.OverallConfidence)
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverallConfidence != out[j].OverallConfidence {
			return out[i].OverallConfidence < out[j].OverallConfidence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchesSearch(d domain.Document, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(d.Vendor), q) {
		return true
	}
	if strings.Contains(strings.ToLower(d.ID), q) {
		return true
	}
	if f, err := d.Field(invoiceIdentifierField); err == nil {
		if strings.Contains(strings.ToLower(f.EffectiveValue()), q) {
			return true
		}
	}
	return false
}
