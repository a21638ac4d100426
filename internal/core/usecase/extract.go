package usecase

import (
	"context"
	"fmt"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

// ExtractUseCase drives a document through Uploaded -> Extracting and then
// commits the triaged outcome. The extractor call itself runs outside the
// per-document critical section: only the two commits take the lock, so a
// multi-second extraction never blocks reviewers of other revisions.
type ExtractUseCase struct {
	ledger    ports.Ledger
	extractor ports.Extractor
	recorder  *AuditRecorder
	triage    *TriageEngine
	locks     *docLocks
}

func NewExtractUseCase(ledger ports.Ledger, extractor ports.Extractor, recorder *AuditRecorder, triage *TriageEngine) *ExtractUseCase {
	return &ExtractUseCase{
		ledger:    ledger,
		extractor: extractor,
		recorder:  recorder,
		triage:    triage,
		locks:     newDocLocks(),
	}
}

func (uc *ExtractUseCase) BeginExtraction(ctx context.Context, documentID string) error {
	doc, err := uc.markExtracting(ctx, documentID)
	if err != nil {
		return err
	}

	res, extractErr := uc.extractor.Extract(ctx, doc)
	if extractErr != nil {
		if err := uc.commitFailure(ctx, documentID, extractErr); err != nil {
			return fmt.Errorf("%w; record extraction failure: %v", extractErr, err)
		}
		return extractErr
	}

	return uc.commitOutcome(ctx, documentID, res)
}

func (uc *ExtractUseCase) markExtracting(ctx context.Context, documentID string) (*domain.Document, error) {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := ensureTransition(doc.Stage, domain.StageExtracting); err != nil {
		return nil, err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventStageTransition, actor: domain.ActorSystem, payload: domain.TransitionPayload{
			From: doc.Stage, To: domain.StageExtracting,
		}},
	)
	if err != nil {
		return nil, err
	}

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             domain.StageExtracting,
		Vendor:            doc.Vendor,
		OverallConfidence: doc.OverallConfidence,
		TransitionAt:      at,
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit extracting stage: %w", err)
	}

	doc.Stage = domain.StageExtracting
	doc.LastSequence += int64(len(events))
	return doc, nil
}

func (uc *ExtractUseCase) commitOutcome(ctx context.Context, documentID string, res domain.ExtractionResult) error {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}

	outcome := uc.triage.Classify(res)
	if err := ensureTransition(doc.Stage, outcome.TargetStage); err != nil {
		return err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventExtract, actor: domain.ActorExtractor, payload: domain.ExtractPayload{
			Vendor:            res.Vendor,
			Fields:            res.Fields,
			OverallConfidence: res.OverallConfidence,
		}},
		eventSpec{kind: domain.EventStageTransition, actor: domain.ActorSystem, payload: domain.TransitionPayload{
			From: doc.Stage, To: outcome.TargetStage,
		}},
	)
	if err != nil {
		return err
	}

	fields := make([]domain.Field, 0, len(res.Fields))
	for _, f := range res.Fields {
		fields = append(fields, domain.Field{
			Name:           f.Name,
			ExtractedValue: f.Value,
			RawText:        f.RawText,
			Confidence:     f.Confidence,
		})
	}

	commit := domain.TransitionCommit{
		DocumentID:        documentID,
		ExpectedSequence:  doc.LastSequence,
		Stage:             outcome.TargetStage,
		Vendor:            res.Vendor,
		OverallConfidence: res.OverallConfidence,
		TransitionAt:      at,
		FieldUpserts:      fields,
		Events:            events,
	}
	if err := uc.ledger.CommitTransition(ctx, commit); err != nil {
		return fmt.Errorf("commit extraction outcome: %w", err)
	}
	return nil
}

// commitFailure records an unreadable document as a terminal rejection. The
// failure is a business outcome, not a retryable error: retry policy, if
// any, lives inside the extraction adapter.
func (uc *ExtractUseCase) commitFailure(ctx context.Context, documentID string, cause error) error {
	unlock := uc.locks.lock(documentID)
	defer unlock()

	doc, err := uc.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	if err := ensureTransition(doc.Stage, domain.StageRejected); err != nil {
		return err
	}

	events, at, err := uc.recorder.batch(documentID, doc.LastSequence,
		eventSpec{kind: domain.EventReject, actor: domain.ActorSystem, payload: domain.ReviewPayload{
			Reason: cause.Error(),
		}},
		eventSpec{kind: domain.EventStageTransition, actor: domain.ActorSystem, payload: domain.TransitionPayload{
			From: doc.Stage, To: domain.StageRejected, Reason: cause.Error(),
		}},
	)
	if err != nil {
		return err
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
		return fmt.Errorf("commit rejection: %w", err)
	}
	return nil
}
