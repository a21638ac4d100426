package ports

import (
	"context"
	"io"

	"github.com/invopilot/docflow/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, actor string, body io.Reader) (*domain.Document, error)
}

// ExtractionRunner drives a document through the extraction stages. The
// worker invokes it for each queued document.
type ExtractionRunner interface {
	BeginExtraction(ctx context.Context, documentID string) error
}

// ReviewWorkflow is the inbound contract for human review actions. An
// expectedSequence of 0 means the caller does not supply an optimistic
// concurrency token and relies on per-document serialization alone.
type ReviewWorkflow interface {
	SubmitFieldCorrection(ctx context.Context, documentID, fieldName, newValue, actor string, expectedSequence int64) (*domain.Document, error)
	Approve(ctx context.Context, documentID, actor string, expectedSequence int64) (*domain.Document, error)
	Reject(ctx context.Context, documentID, actor, reason string, expectedSequence int64) (*domain.Document, error)
	Archive(ctx context.Context, documentID, actor string, expectedSequence int64) (*domain.Document, error)
}

// WorkflowQueries is the read-side API. Never writes.
type WorkflowQueries interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListQueue(ctx context.Context, filter domain.QueueFilter) ([]domain.Document, error)
	ListDocuments(ctx context.Context, q domain.HistoryQuery) ([]domain.Document, error)
	GetAuditTrail(ctx context.Context, id string) ([]domain.AuditEvent, error)
	Stats(ctx context.Context) (domain.WorkflowStats, error)
}
