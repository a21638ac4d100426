package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

// AuditRecorder assigns sequence numbers and builds the event batches that
// accompany every transition. Events are only ever persisted through a
// TransitionCommit, so the assignment here is optimistic: the ledger
// re-checks the expected sequence inside its transaction.
type AuditRecorder struct {
	ledger ports.Ledger
	now    func() time.Time
}

func NewAuditRecorder(ledger ports.Ledger) *AuditRecorder {
	return &AuditRecorder{ledger: ledger, now: time.Now}
}

// batch builds consecutive events starting after lastSequence. Each entry is
// a (kind, actor, payload) triple; the shared timestamp keeps paired events
// (e.g. field-correction + stage-transition) at the same instant.
type eventSpec struct {
	kind    domain.EventKind
	actor   string
	payload any
}

func (r *AuditRecorder) batch(documentID string, lastSequence int64, specs ...eventSpec) ([]domain.AuditEvent, time.Time, error) {
	at := r.now().UTC()
	events := make([]domain.AuditEvent, 0, len(specs))
	for i, s := range specs {
		e, err := domain.NewEvent(documentID, lastSequence+int64(i)+1, s.kind, s.actor, at, s.payload)
		if err != nil {
			return nil, time.Time{}, err
		}
		events = append(events, e)
	}
	return events, at, nil
}

// Replay reconstructs the document purely from its audit trail. Used for
// crash recovery and consistency verification.
func (r *AuditRecorder) Replay(ctx context.Context, documentID string) (*domain.Document, error) {
	events, err := r.ledger.AuditTrail(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return domain.Replay(documentID, events)
}

// Verify replays the log and compares it against the live snapshot, returning
// an error when the two diverge.
func (r *AuditRecorder) Verify(ctx context.Context, documentID string) error {
	live, err := r.ledger.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load live document: %w", err)
	}
	replayed, err := r.Replay(ctx, documentID)
	if err != nil {
		return err
	}
	if replayed.Stage != live.Stage {
		return domain.WrapError(domain.ErrCorruptAuditLog, "verify replay",
			fmt.Errorf("stage mismatch: replay=%s live=%s", replayed.Stage, live.Stage))
	}
	if replayed.LastSequence != live.LastSequence {
		return domain.WrapError(domain.ErrCorruptAuditLog, "verify replay",
			fmt.Errorf("sequence mismatch: replay=%d live=%d", replayed.LastSequence, live.LastSequence))
	}
	if len(replayed.Fields) != len(live.Fields) {
		return domain.WrapError(domain.ErrCorruptAuditLog, "verify replay",
			fmt.Errorf("field count mismatch: replay=%d live=%d", len(replayed.Fields), len(live.Fields)))
	}
	for _, lf := range live.Fields {
		rf, err := replayed.Field(lf.Name)
		if err != nil {
			return domain.WrapError(domain.ErrCorruptAuditLog, "verify replay", err)
		}
		if rf.EffectiveValue() != lf.EffectiveValue() || rf.EffectiveConfidence() != lf.EffectiveConfidence() {
			return domain.WrapError(domain.ErrCorruptAuditLog, "verify replay",
				fmt.Errorf("field %s diverged", lf.Name))
		}
	}
	return nil
}
