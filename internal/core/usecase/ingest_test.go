package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/invopilot/docflow/internal/core/domain"
)

func TestUploadCreatesDocumentAndQueuesExtraction(t *testing.T) {
	ledger := newMemoryLedger()
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestUseCase(ledger, storage, queue)

	doc, err := uc.Upload(context.Background(), "March Invoice (final).pdf", "application/pdf", "uploader@corp", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Stage != domain.StageUploaded || doc.LastSequence != 1 {
		t.Fatalf("doc = %s seq %d", doc.Stage, doc.LastSequence)
	}
	if doc.OriginalFilename != "March Invoice (final).pdf" {
		t.Fatalf("original filename = %q", doc.OriginalFilename)
	}
	if strings.ContainsAny(doc.StoragePath, " ()") {
		t.Fatalf("storage key not sanitized: %q", doc.StoragePath)
	}

	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatalf("blob not saved under %q", doc.StoragePath)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v", queue.published)
	}

	events, err := ledger.AuditTrail(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(events) != 1 || events[0].Kind != domain.EventUpload || events[0].Sequence != 1 {
		t.Fatalf("first event = %+v", events)
	}
	if events[0].Actor != "uploader@corp" {
		t.Fatalf("actor = %q", events[0].Actor)
	}
}

func TestUploadStorageFailureAborts(t *testing.T) {
	ledger := newMemoryLedger()
	storage := newStorageFake()
	storage.err = errors.New("disk full")
	queue := &queueFake{}
	uc := NewIngestUseCase(ledger, storage, queue)

	_, err := uc.Upload(context.Background(), "a.txt", "text/plain", "uploader", strings.NewReader("x"))
	if err == nil {
		t.Fatal("want error when storage fails")
	}
	if len(queue.published) != 0 {
		t.Fatalf("nothing should be queued, got %v", queue.published)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"simple.txt":          "simple.txt",
		"with space.pdf":      "with_space.pdf",
		"../../etc/passwd":    "passwd",
		"läächen%.txt":        "l__chen_.txt",
		"":                    "document.bin",
		"UPPER-case_0.9.docx": "UPPER-case_0.9.docx",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
