package usecase

import (
	"context"
	"fmt"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

// QueryUseCase is the read side: ledger snapshots composed with triage
// filtering. It never writes, and priorities are derived on every read.
type QueryUseCase struct {
	ledger ports.Ledger
	triage *TriageEngine
}

func NewQueryUseCase(ledger ports.Ledger, triage *TriageEngine) *QueryUseCase {
	return &QueryUseCase{ledger: ledger, triage: triage}
}

func (uc *QueryUseCase) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.ledger.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	doc.Priority = uc.triage.Thresholds().PriorityFor(doc.OverallConfidence)
	return doc, nil
}

func (uc *QueryUseCase) ListQueue(ctx context.Context, filter domain.QueueFilter) ([]domain.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	docs, err := uc.ledger.ListByStage(ctx, domain.StageNeedsReview)
	if err != nil {
		return nil, fmt.Errorf("load review candidates: %w", err)
	}
	return uc.triage.Queue(docs, filter)
}

func (uc *QueryUseCase) ListDocuments(ctx context.Context, q domain.HistoryQuery) ([]domain.Document, error) {
	docs, err := uc.ledger.ListDocuments(ctx, q.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		docs[i].Priority = uc.triage.Thresholds().PriorityFor(docs[i].OverallConfidence)
	}
	return docs, nil
}

func (uc *QueryUseCase) GetAuditTrail(ctx context.Context, id string) ([]domain.AuditEvent, error) {
	events, err := uc.ledger.AuditTrail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "load audit trail",
			fmt.Errorf("document %s has no events", id))
	}
	return events, nil
}

func (uc *QueryUseCase) Stats(ctx context.Context) (domain.WorkflowStats, error) {
	stats, err := uc.ledger.Stats(ctx)
	if err != nil {
		return domain.WorkflowStats{}, fmt.Errorf("load workflow stats: %w", err)
	}
	return stats, nil
}
