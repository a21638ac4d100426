package ports

import (
	"context"
	"io"

	"github.com/invopilot/docflow/internal/core/domain"
)

// Ledger is the durable store of documents, fields and audit events. It is
// pure data access: transition policy lives in the use cases, the ledger
// only guarantees atomicity and the optimistic-concurrency check.
type Ledger interface {
	// CreateDocument atomically persists a new document together with its
	// first audit event (sequence 1).
	CreateDocument(ctx context.Context, doc *domain.Document, event domain.AuditEvent) error

	// GetDocument returns the last-committed snapshot including fields.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListByStage returns all documents currently in the given stage,
	// fields included.
	ListByStage(ctx context.Context, stage domain.Stage) ([]domain.Document, error)

	// ListDocuments is the history listing, newest first.
	ListDocuments(ctx context.Context, q domain.HistoryQuery) ([]domain.Document, error)

	// CommitTransition applies a stage/field mutation and appends its
	// audit events in one atomic write. Returns ErrStaleTransition when
	// the document's log has advanced past commit.ExpectedSequence and
	// ErrNotFound for unknown documents.
	CommitTransition(ctx context.Context, commit domain.TransitionCommit) error

	// AuditTrail returns the full event sequence in sequence order.
	AuditTrail(ctx context.Context, id string) ([]domain.AuditEvent, error)

	// Stats summarizes per-stage document counts and mean confidence.
	Stats(ctx context.Context) (domain.WorkflowStats, error)
}

// ObjectStorage stores raw uploaded documents for later extraction.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries extraction requests from the API to the worker.
type MessageQueue interface {
	PublishExtractionRequested(ctx context.Context, documentID string) error
	SubscribeExtractionRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// Extractor is the external extraction engine. It returns a
// confidence-annotated field set, or an error wrapping
// domain.ErrExtractionFailure when the document is unreadable. Retry policy,
// if any, lives behind this interface; the core never retries.
type Extractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.ExtractionResult, error)
}
