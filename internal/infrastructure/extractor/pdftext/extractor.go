// Package pdftext harvests plain text from PDF uploads and feeds it through
// the same field scan as textscan.
package pdftext

import (
	"bytes"
	"context"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
	"github.com/invopilot/docflow/internal/infrastructure/extractor/textscan"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractionResult, error) {
	rc, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "open raw document", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "read raw document", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "parse pdf", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "extract pdf text", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "read pdf text", err)
	}

	return textscan.Scan(string(text))
}
