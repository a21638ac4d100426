// Package memory provides an in-process Ledger used by tests and
// single-node development. Behavior mirrors the Postgres implementation:
// commits are atomic under the store lock and reads return deep copies, so
// callers never observe a half-applied transition.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/invopilot/docflow/internal/core/domain"
)

type record struct {
	doc    domain.Document
	events []domain.AuditEvent
}

type Ledger struct {
	mu   sync.RWMutex
	docs map[string]*record
}

func NewLedger() *Ledger {
	return &Ledger{docs: make(map[string]*record)}
}

func (l *Ledger) CreateDocument(_ context.Context, doc *domain.Document, event domain.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.docs[doc.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create document",
			fmt.Errorf("document %s already exists", doc.ID))
	}
	if event.Sequence != 1 {
		return domain.WrapError(domain.ErrInvalidInput, "create document",
			fmt.Errorf("first event must have sequence 1, got %d", event.Sequence))
	}

	stored := cloneDocument(doc)
	stored.LastSequence = 1
	l.docs[doc.ID] = &record{
		doc:    *stored,
		events: []domain.AuditEvent{cloneEvent(event)},
	}
	return nil
}

func (l *Ledger) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document",
			fmt.Errorf("document %s", id))
	}
	return cloneDocument(&rec.doc), nil
}

func (l *Ledger) ListByStage(_ context.Context, stage domain.Stage) ([]domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Document
	for _, rec := range l.docs {
		if rec.doc.Stage == stage {
			out = append(out, *cloneDocument(&rec.doc))
		}
	}
	return out, nil
}

func (l *Ledger) ListDocuments(_ context.Context, q domain.HistoryQuery) ([]domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	q = q.Normalize()
	var all []domain.Document
	for _, rec := range l.docs {
		if q.Stage != nil && rec.doc.Stage != *q.Stage {
			continue
		}
		all = append(all, *cloneDocument(&rec.doc))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if q.Offset >= len(all) {
		return nil, nil
	}
	all = all[q.Offset:]
	if len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func (l *Ledger) CommitTransition(_ context.Context, commit domain.TransitionCommit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.docs[commit.DocumentID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "commit transition",
			fmt.Errorf("document %s", commit.DocumentID))
	}
	if rec.doc.LastSequence != commit.ExpectedSequence {
		return domain.WrapError(domain.ErrStaleTransition, "commit transition",
			fmt.Errorf("log at sequence %d, commit expected %d", rec.doc.LastSequence, commit.ExpectedSequence))
	}
	if len(commit.Events) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "commit transition",
			fmt.Errorf("commit without audit events"))
	}
	for i, e := range commit.Events {
		want := commit.ExpectedSequence + int64(i) + 1
		if e.Sequence != want {
			return domain.WrapError(domain.ErrInvalidInput, "commit transition",
				fmt.Errorf("event sequence %d, want %d", e.Sequence, want))
		}
	}

	rec.doc.Stage = commit.Stage
	rec.doc.Vendor = commit.Vendor
	rec.doc.OverallConfidence = commit.OverallConfidence
	rec.doc.LastTransitionAt = commit.TransitionAt
	rec.doc.LastSequence = commit.ExpectedSequence + int64(len(commit.Events))

	for _, f := range commit.FieldUpserts {
		upsertField(&rec.doc, f)
	}
	for _, e := range commit.Events {
		rec.events = append(rec.events, cloneEvent(e))
	}
	return nil
}

func (l *Ledger) AuditTrail(_ context.Context, id string) ([]domain.AuditEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "audit trail",
			fmt.Errorf("document %s", id))
	}
	out := make([]domain.AuditEvent, len(rec.events))
	for i, e := range rec.events {
		out[i] = cloneEvent(e)
	}
	return out, nil
}

func (l *Ledger) Stats(_ context.Context) (domain.WorkflowStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := domain.WorkflowStats{ByStage: make(map[domain.Stage]int64)}
	var confidenceSum float64
	for _, rec := range l.docs {
		stats.ByStage[rec.doc.Stage]++
		stats.TotalDocuments++
		confidenceSum += rec.doc.OverallConfidence
	}
	if stats.TotalDocuments > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.TotalDocuments)
	}
	return stats, nil
}

func upsertField(doc *domain.Document, f domain.Field) {
	for i := range doc.Fields {
		if doc.Fields[i].Name == f.Name {
			doc.Fields[i] = cloneField(f)
			return
		}
	}
	doc.Fields = append(doc.Fields, cloneField(f))
}

func cloneDocument(d *domain.Document) *domain.Document {
	out := *d
	out.Fields = make([]domain.Field, len(d.Fields))
	for i, f := range d.Fields {
		out.Fields[i] = cloneField(f)
	}
	return &out
}

func cloneField(f domain.Field) domain.Field {
	out := f
	if f.CorrectedValue != nil {
		v := *f.CorrectedValue
		out.CorrectedValue = &v
	}
	if f.EditedAt != nil {
		t := *f.EditedAt
		out.EditedAt = &t
	}
	return out
}

func cloneEvent(e domain.AuditEvent) domain.AuditEvent {
	out := e
	out.Payload = append([]byte(nil), e.Payload...)
	return out
}
