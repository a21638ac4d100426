package usecase

import (
	"context"
	"testing"

	"github.com/invopilot/docflow/internal/core/domain"
)

func TestListQueueFiltersAndSorts(t *testing.T) {
	ledger := newMemoryLedger()
	seedNeedsReview(t, ledger, "doc-low", domain.ExtractionResult{
		Vendor:            "Northwind",
		Fields:            []domain.ExtractedField{{Name: "invoice_number", Value: "INV-1", Confidence: 41}},
		OverallConfidence: 41,
	})
	seedNeedsReview(t, ledger, "doc-mid", domain.ExtractionResult{
		Vendor:            "Contoso",
		Fields:            []domain.ExtractedField{{Name: "invoice_number", Value: "INV-2", Confidence: 72}},
		OverallConfidence: 72,
	})

	uc := NewQueryUseCase(ledger, NewTriageEngine(domain.DefaultThresholds()))

	docs, err := uc.ListQueue(context.Background(), domain.DefaultQueueFilter())
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-low" || docs[1].ID != "doc-mid" {
		t.Fatalf("queue order wrong: %+v", docs)
	}
	if docs[0].Priority != domain.PriorityHigh || docs[1].Priority != domain.PriorityMedium {
		t.Fatalf("priorities = %s, %s", docs[0].Priority, docs[1].Priority)
	}

	filter := domain.DefaultQueueFilter()
	filter.MinConfidence = 50
	docs, err = uc.ListQueue(context.Background(), filter)
	if err != nil {
		t.Fatalf("ListQueue filtered: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-mid" {
		t.Fatalf("filtered queue = %+v", docs)
	}
}

func TestListQueueRejectsInvalidFilter(t *testing.T) {
	uc := NewQueryUseCase(newMemoryLedger(), NewTriageEngine(domain.DefaultThresholds()))

	_, err := uc.ListQueue(context.Background(), domain.QueueFilter{MinConfidence: 80, MaxConfidence: 20})
	if !domain.IsKind(err, domain.ErrInvalidFilter) {
		t.Fatalf("err = %v, want invalid filter", err)
	}
}

func TestGetAuditTrailUnknownDocument(t *testing.T) {
	uc := NewQueryUseCase(newMemoryLedger(), NewTriageEngine(domain.DefaultThresholds()))

	_, err := uc.GetAuditTrail(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestStatsCountsStages(t *testing.T) {
	ledger := newMemoryLedger()
	seedNeedsReview(t, ledger, "doc-a", reviewExtraction())
	seedUploaded(t, ledger, "doc-b")

	uc := NewQueryUseCase(ledger, NewTriageEngine(domain.DefaultThresholds()))
	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 2 {
		t.Fatalf("total = %d", stats.TotalDocuments)
	}
	if stats.ByStage[domain.StageNeedsReview] != 1 || stats.ByStage[domain.StageUploaded] != 1 {
		t.Fatalf("by stage = %v", stats.ByStage)
	}
}
