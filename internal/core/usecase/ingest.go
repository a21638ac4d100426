package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

// IngestUseCase accepts a raw document: the blob goes to object storage, the
// document record (stage Uploaded) and its first audit event go to the
// ledger, and an extraction request is queued for the worker.
type IngestUseCase struct {
	ledger  ports.Ledger
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	now     func() time.Time
}

func NewIngestUseCase(ledger ports.Ledger, storage ports.ObjectStorage, queue ports.MessageQueue) *IngestUseCase {
	return &IngestUseCase{
		ledger:  ledger,
		storage: storage,
		queue:   queue,
		now:     time.Now,
	}
}

func (uc *IngestUseCase) Upload(ctx context.Context, filename, mimeType, actor string, body io.Reader) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save raw document: %w", err)
	}

	doc := &domain.Document{
		ID:               id,
		OriginalFilename: filename,
		MimeType:         mimeType,
		StoragePath:      storageKey,
		Stage:            domain.StageUploaded,
		CreatedAt:        now,
		LastTransitionAt: now,
		LastSequence:     1,
	}

	event, err := domain.NewEvent(id, 1, domain.EventUpload, actor, now, domain.UploadPayload{
		OriginalFilename: filename,
		MimeType:         mimeType,
		StoragePath:      storageKey,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.ledger.CreateDocument(ctx, doc, event); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishExtractionRequested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish extraction request: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
