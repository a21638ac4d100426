package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, docID string, seq int64, kind EventKind, actor string, at time.Time, payload any) AuditEvent {
	t.Helper()
	e, err := NewEvent(docID, seq, kind, actor, at, payload)
	require.NoError(t, err)
	return e
}

func sampleTrail(t *testing.T) []AuditEvent {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	return []AuditEvent{
		mustEvent(t, "d1", 1, EventUpload, "uploader", base, UploadPayload{
			OriginalFilename: "invoice.txt", MimeType: "text/plain", StoragePath: "d1_invoice.txt",
		}),
		mustEvent(t, "d1", 2, EventStageTransition, ActorSystem, base.Add(time.Second), TransitionPayload{
			From: StageUploaded, To: StageExtracting,
		}),
		mustEvent(t, "d1", 3, EventExtract, ActorExtractor, base.Add(3*time.Second), ExtractPayload{
			Vendor: "Office Essentials",
			Fields: []ExtractedField{
				{Name: "invoice_number", Value: "INV-20240003", RawText: "Invoice Number: INV-20240003", Confidence: 98},
				{Name: "due_date", Value: "15/02/24", RawText: "Due Date: 15/02/24", Confidence: 46},
			},
			OverallConfidence: 72,
		}),
		mustEvent(t, "d1", 4, EventStageTransition, ActorSystem, base.Add(3*time.Second), TransitionPayload{
			From: StageExtracting, To: StageNeedsReview,
		}),
	}
}

func TestReplayRebuildsDocument(t *testing.T) {
	doc, err := Replay("d1", sampleTrail(t))
	require.NoError(t, err)

	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, StageNeedsReview, doc.Stage)
	assert.Equal(t, "Office Essentials", doc.Vendor)
	assert.Equal(t, 72.0, doc.OverallConfidence)
	assert.Equal(t, int64(4), doc.LastSequence)
	require.Len(t, doc.Fields, 2)
	assert.Equal(t, "INV-20240003", doc.Fields[0].EffectiveValue())
}

func TestReplayAppliesCorrections(t *testing.T) {
	trail := sampleTrail(t)
	at := trail[len(trail)-1].OccurredAt.Add(time.Minute)
	trail = append(trail,
		mustEvent(t, "d1", 5, EventFieldCorrection, "reviewer@corp", at, CorrectionPayload{
			Field: "due_date", PreviousValue: "15/02/24", CorrectedValue: "2024-02-15",
		}),
		mustEvent(t, "d1", 6, EventStageTransition, "reviewer@corp", at, TransitionPayload{
			From: StageNeedsReview, To: StageApproved,
		}),
	)

	doc, err := Replay("d1", trail)
	require.NoError(t, err)

	assert.Equal(t, StageApproved, doc.Stage)
	assert.Equal(t, 99.0, doc.OverallConfidence)

	f, err := doc.Field("due_date")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", f.EffectiveValue())
	assert.Equal(t, "15/02/24", f.ExtractedValue)
	assert.Equal(t, "reviewer@corp", f.EditedBy)
}

func TestReplayEmptyTrailIsNotFound(t *testing.T) {
	_, err := Replay("missing", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrNotFound))
}

func TestReplayDetectsSequenceGap(t *testing.T) {
	trail := sampleTrail(t)
	trail[2].Sequence = 7

	_, err := Replay("d1", trail)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrCorruptAuditLog))
}

func TestReplayDetectsTransitionMismatch(t *testing.T) {
	trail := sampleTrail(t)[:2]
	trail = append(trail, mustEvent(t, "d1", 3, EventStageTransition, ActorSystem, time.Now(), TransitionPayload{
		From: StageNeedsReview, To: StageApproved,
	}))

	_, err := Replay("d1", trail)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrCorruptAuditLog))
}

func TestReplayRejectsLogNotStartingWithUpload(t *testing.T) {
	trail := sampleTrail(t)[1:]
	for i := range trail {
		trail[i].Sequence = int64(i) + 1
	}

	_, err := Replay("d1", trail)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrCorruptAuditLog))
}

func TestQueueFilterValidate(t *testing.T) {
	assert.NoError(t, DefaultQueueFilter().Validate())
	assert.NoError(t, QueueFilter{MinConfidence: 40, MaxConfidence: 40}.Validate())

	err := QueueFilter{MinConfidence: 60, MaxConfidence: 40}.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidFilter))

	err = QueueFilter{MinConfidence: -5, MaxConfidence: 110}.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidFilter))
}
