package usecase

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
	"github.com/invopilot/docflow/internal/infrastructure/repository/memory"
)

type extractorFake struct {
	res domain.ExtractionResult
	err error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (domain.ExtractionResult, error) {
	if f.err != nil {
		return domain.ExtractionResult{}, f.err
	}
	return f.res, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = b
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.saved[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishExtractionRequested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeExtractionRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

// seedUploaded creates a freshly uploaded document directly in the ledger,
// the same shape the ingest use case produces.
func seedUploaded(t *testing.T, ledger ports.Ledger, id string) *domain.Document {
	t.Helper()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	doc := &domain.Document{
		ID:               id,
		OriginalFilename: "invoice.txt",
		MimeType:         "text/plain",
		StoragePath:      id + "_invoice.txt",
		Stage:            domain.StageUploaded,
		CreatedAt:        now,
		LastTransitionAt: now,
		LastSequence:     1,
	}
	event, err := domain.NewEvent(id, 1, domain.EventUpload, "uploader", now, domain.UploadPayload{
		OriginalFilename: doc.OriginalFilename,
		MimeType:         doc.MimeType,
		StoragePath:      doc.StoragePath,
	})
	if err != nil {
		t.Fatalf("build upload event: %v", err)
	}
	if err := ledger.CreateDocument(context.Background(), doc, event); err != nil {
		t.Fatalf("seed uploaded document: %v", err)
	}
	return doc
}

// seedNeedsReview runs a document through extraction with the given result,
// leaving it in NeedsReview (the result's confidence must be below the
// default threshold).
func seedNeedsReview(t *testing.T, ledger ports.Ledger, id string, res domain.ExtractionResult) {
	t.Helper()
	seedUploaded(t, ledger, id)

	triage := NewTriageEngine(domain.DefaultThresholds())
	recorder := NewAuditRecorder(ledger)
	uc := NewExtractUseCase(ledger, &extractorFake{res: res}, recorder, triage)

	if err := uc.BeginExtraction(context.Background(), id); err != nil {
		t.Fatalf("seed extraction: %v", err)
	}
	doc, err := ledger.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("reload seeded document: %v", err)
	}
	if doc.Stage != domain.StageNeedsReview {
		t.Fatalf("seed expected NeedsReview, got %s", doc.Stage)
	}
}

func reviewExtraction() domain.ExtractionResult {
	return domain.ExtractionResult{
		Vendor: "Office Essentials",
		Fields: []domain.ExtractedField{
			{Name: "invoice_number", Value: "INV-20240003", RawText: "Invoice Number: INV-20240003", Confidence: 98},
			{Name: "due_date", Value: "15/02/24", RawText: "Due Date: 15/02/24", Confidence: 46},
		},
		OverallConfidence: 72,
	}
}

func trailKinds(t *testing.T, ledger ports.Ledger, id string) []domain.EventKind {
	t.Helper()
	events, err := ledger.AuditTrail(context.Background(), id)
	if err != nil {
		t.Fatalf("load audit trail: %v", err)
	}
	kinds := make([]domain.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func newMemoryLedger() *memory.Ledger {
	return memory.NewLedger()
}
