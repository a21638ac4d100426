package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/infrastructure/resilience"
)

type stubExtractor struct {
	name  string
	calls int
	errs  []error
}

func (s *stubExtractor) Extract(context.Context, *domain.Document) (domain.ExtractionResult, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return domain.ExtractionResult{}, err
		}
	}
	return domain.ExtractionResult{Vendor: s.name, OverallConfidence: 91}, nil
}

func TestDispatcherRoutesByMimeType(t *testing.T) {
	pdf := &stubExtractor{name: "pdf"}
	text := &stubExtractor{name: "text"}
	d := NewDispatcher(pdf, text)

	res, err := d.Extract(context.Background(), &domain.Document{MimeType: "application/pdf"})
	if err != nil {
		t.Fatalf("Extract(pdf) error = %v", err)
	}
	if res.Vendor != "pdf" {
		t.Fatalf("pdf document routed to %q", res.Vendor)
	}

	res, err = d.Extract(context.Background(), &domain.Document{MimeType: "text/plain; charset=utf-8"})
	if err != nil {
		t.Fatalf("Extract(text) error = %v", err)
	}
	if res.Vendor != "text" {
		t.Fatalf("text document routed to %q", res.Vendor)
	}
	if pdf.calls != 1 || text.calls != 1 {
		t.Fatalf("calls pdf=%d text=%d", pdf.calls, text.calls)
	}
}

func TestResilientRetriesTransientErrors(t *testing.T) {
	inner := &stubExtractor{name: "text", errs: []error{errors.New("engine connection reset")}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	r := NewResilient(inner, exec)

	res, err := r.Extract(context.Background(), &domain.Document{MimeType: "text/plain"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.OverallConfidence != 91 || inner.calls != 2 {
		t.Fatalf("res=%+v calls=%d, want retried success", res, inner.calls)
	}
}

func TestResilientDoesNotRetryUnreadableDocument(t *testing.T) {
	failure := domain.WrapError(domain.ErrExtractionFailure, "scan fields", errors.New("no recognizable fields"))
	inner := &stubExtractor{name: "text", errs: []error{failure, failure}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	r := NewResilient(inner, exec)

	_, err := r.Extract(context.Background(), &domain.Document{MimeType: "text/plain"})
	if !domain.IsKind(err, domain.ErrExtractionFailure) {
		t.Fatalf("err = %v, want extraction failure", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, business outcome must not be retried", inner.calls)
	}
}
