// Package extractor composes the concrete extraction adapters: mime-based
// dispatch plus the retry/breaker wrapper. The workflow core never retries;
// retry policy lives here, in the adapter.
package extractor

import (
	"context"
	"errors"
	"strings"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
	"github.com/invopilot/docflow/internal/infrastructure/resilience"
)

// Dispatcher routes documents to the adapter matching their mime type.
type Dispatcher struct {
	pdf  ports.Extractor
	text ports.Extractor
}

func NewDispatcher(pdf, text ports.Extractor) *Dispatcher {
	return &Dispatcher{pdf: pdf, text: text}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractionResult, error) {
	if strings.Contains(strings.ToLower(doc.MimeType), "pdf") {
		return d.pdf.Extract(ctx, doc)
	}
	return d.text.Extract(ctx, doc)
}

// Resilient wraps an extractor with the resilience executor. A genuine
// ExtractionFailure is a business outcome and is never retried; transient
// infrastructure errors are.
type Resilient struct {
	inner    ports.Extractor
	executor *resilience.Executor
}

func NewResilient(inner ports.Extractor, executor *resilience.Executor) *Resilient {
	return &Resilient{inner: inner, executor: executor}
}

func (r *Resilient) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractionResult, error) {
	var res domain.ExtractionResult
	err := r.executor.Execute(ctx, "extractor.extract", func(callCtx context.Context) error {
		var callErr error
		res, callErr = r.inner.Extract(callCtx, doc)
		return callErr
	}, classifyExtractionError)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	return res, nil
}

func classifyExtractionError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if domain.IsKind(err, domain.ErrExtractionFailure) {
		// Unreadable document: terminal outcome, not an engine fault.
		return resilience.ErrorClassification{}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
