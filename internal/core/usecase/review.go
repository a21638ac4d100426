package usecase

import (
	"context"
	"fmt"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

// ReviewUseCase owns the human side of the lifecycle: approvals, rejections,
// field corrections and archiving. Every mutation commits the stage change
// and its audit events atomically under the per-document lock.
type ReviewUseCase struct {
	ledger   ports.Ledger
	recorder *AuditRecorder
	triage   *TriageEngine
	locks    *docLocks
}

func NewReviewUseCase(ledger ports.Ledger, recorder *AuditRecorder, triage *TriageEngine) *ReviewUseCase {
	return &ReviewUseCase{
		ledger:   ledger,
		recorder: recorder,
		triage:   triage,
		locks:    newDocLocks(),
	}
}

func (uc *ReviewUseCase) Approve(ctx context.Context, documentID, actor string, expectedSequence int64) (*domain.Document, error) {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.loadForWrite(ctx, documentID, expectedSequence)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageNeedsReview); err != nil {
		return nil, err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventApprove, actor: actor, payload: domain.ReviewPayload{}},
		eventSpec{kind: domain.EventStageTransition, actor: actor, payload: domain.TransitionPayload{
			From: doc.Stage, To: domain.StageApproved,
		}},
	)
	if err != nil {
		return nil, err
	}

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             domain.StageApproved,
		Vendor:            doc.Vendor,
		OverallConfidence: doc.OverallConfidence,
		TransitionAt:      at,
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return uc.refresh(ctx, documentID)
}

func (uc *ReviewUseCase) Reject(ctx context.Context, documentID, actor, reason string, expectedSequence int64) (*domain.Document, error) {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.loadForWrite(ctx, documentID, expectedSequence)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageNeedsReview, domain.StageApproved); err != nil {
		return nil, err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventReject, actor: actor, payload: domain.ReviewPayload{Reason: reason}},
		eventSpec{kind: domain.EventStageTransition, actor: actor, payload: domain.TransitionPayload{
			From: doc.Stage, To: domain.StageRejected, Reason: reason,
		}},
	)
	if err != nil {
		return nil, err
	}

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             domain.StageRejected,
		Vendor:            doc.Vendor,
		OverallConfidence: doc.OverallConfidence,
		TransitionAt:      at,
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit rejection: %w", err)
	}
	return uc.refresh(ctx, documentID)
}

func (uc *ReviewUseCase) Archive(ctx context.Context, documentID, actor string, expectedSequence int64) (*domain.Document, error) {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.loadForWrite(ctx, documentID, expectedSequence)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageApproved); err != nil {
		return nil, err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventStageTransition, actor: actor, payload: domain.TransitionPayload{
			From: doc.Stage, To: domain.StageArchived,
		}},
	)
	if err != nil {
		return nil, err
	}

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             domain.StageArchived,
		Vendor:            doc.Vendor,
		OverallConfidence: doc.OverallConfidence,
		TransitionAt:      at,
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit archive: %w", err)
	}
	return uc.refresh(ctx, documentID)
}

// SubmitFieldCorrection records a human correction, recomputes the overall
// confidence and re-evaluates the auto-approve threshold. When the corrected
// document clears the threshold, the stage transition is committed in the
// same batch, giving consecutive sequence numbers.
func (uc *ReviewUseCase) SubmitFieldCorrection(ctx context.Context, documentID, fieldName, newValue, actor string, expectedSequence int64) (*domain.Document, error) {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.loadForWrite(ctx, documentID, expectedSequence)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageNeedsReview); err != nil {
		return nil, err
	}

	field, err := doc.Field(fieldName)
	if err != nil {
		return nil, err
	}
	previous := field.EffectiveValue()

	specs := []eventSpec{
		{kind: domain.EventFieldCorrection, actor: actor, payload: domain.CorrectionPayload{
			Field:          fieldName,
			PreviousValue:  previous,
			CorrectedValue: newValue,
		}},
	}

	corrected := newValue
	field.CorrectedValue = &corrected
	field.EditedBy = actor
	doc.RecomputeConfidence()

	targetStage := doc.Stage
	if doc.OverallConfidence >= uc.triage.Thresholds().AutoApprove {
		targetStage = domain.StageApproved
		specs = append(specs, eventSpec{
			kind: domain.EventStageTransition, actor: actor,
			payload: domain.TransitionPayload{From: doc.Stage, To: targetStage},
		})
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence, specs...)
	if err != nil {
		return nil, err
	}
	field.EditedAt = &at

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             targetStage,
		Vendor:            doc.Vendor,
		OverallConfidence: doc.OverallConfidence,
		TransitionAt:      at,
		FieldUpserts:      []domain.Field{*field},
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit field correction: %w", err)
	}
	return uc.refresh(ctx, documentID)
}

func (uc *ReviewUseCase) loadForWrite(ctx context.Context, documentID string, expectedSequence int64) (*domain.Document, error) {
	doc, err := uc.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if expectedSequence != 0 && doc.LastSequence != expectedSequence {
		return nil, domain.WrapError(domain.ErrStaleTransition, "optimistic check",
			fmt.Errorf("log at sequence %d, caller expected %d", doc.LastSequence, expectedSequence))
	}
	return doc, nil
}

func (uc *ReviewUseCase) refresh(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("reload document: %w", err)
	}
	doc.Priority = uc.triage.Thresholds().PriorityFor(doc.OverallConfidence)
	return doc, nil
}

// requireStage narrows the transition table's "From" column for a specific
// operation, so a human approve cannot fire from Extracting even though
// Extracting -> Approved is a legal system edge.
func requireStage(doc *domain.Document, allowed ...domain.Stage) error {
	for _, s := range allowed {
		if doc.Stage == s {
			return nil
		}
	}
	return domain.WrapError(domain.ErrIllegalTransition, "stage guard",
		fmt.Errorf("document %s is %s", doc.ID, doc.Stage))
}
