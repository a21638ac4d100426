package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/invopilot/docflow/internal/core/domain"
)

// Ledger is the durable store of documents, fields and audit events on
// Postgres. Commit atomicity and the optimistic-concurrency check are
// enforced here; transition policy lives in the use cases.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	vendor TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	stage TEXT NOT NULL,
	overall_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_sequence BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	last_transition_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_fields (
	document_id TEXT NOT NULL REFERENCES documents(id),
	name TEXT NOT NULL,
	extracted_value TEXT NOT NULL,
	raw_text TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	corrected_value TEXT,
	edited_by TEXT NOT NULL DEFAULT '',
	edited_at TIMESTAMPTZ,
	PRIMARY KEY (document_id, name)
);

CREATE TABLE IF NOT EXISTS audit_events (
	document_id TEXT NOT NULL REFERENCES documents(id),
	sequence BIGINT NOT NULL,
	kind TEXT NOT NULL,
	actor TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	PRIMARY KEY (document_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_documents_stage ON documents(stage);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (l *Ledger) CreateDocument(ctx context.Context, doc *domain.Document, event domain.AuditEvent) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (
	id, vendor, original_filename, mime_type, storage_path, stage, overall_confidence, last_sequence, created_at, last_transition_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.Vendor, doc.OriginalFilename, doc.MimeType, doc.StoragePath,
		string(doc.Stage), doc.OverallConfidence, event.Sequence, doc.CreatedAt, doc.LastTransitionAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	return nil
}

func (l *Ledger) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := l.db.QueryRowContext(ctx, `
SELECT id, vendor, original_filename, mime_type, storage_path, stage, overall_confidence, last_sequence, created_at, last_transition_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	fields, err := l.loadFields(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	doc.Fields = fields[id]
	return doc, nil
}

func (l *Ledger) ListByStage(ctx context.Context, stage domain.Stage) ([]domain.Document, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT id, vendor, original_filename, mime_type, storage_path, stage, overall_confidence, last_sequence, created_at, last_transition_at
FROM documents
WHERE stage = $1
ORDER BY created_at ASC
`, string(stage))
	if err != nil {
		return nil, fmt.Errorf("query documents by stage: %w", err)
	}
	defer rows.Close()

	return l.collectDocuments(ctx, rows)
}

func (l *Ledger) ListDocuments(ctx context.Context, q domain.HistoryQuery) ([]domain.Document, error) {
	q = q.Normalize()

	query := `
SELECT id, vendor, original_filename, mime_type, storage_path, stage, overall_confidence, last_sequence, created_at, last_transition_at
FROM documents
`
	args := []any{}
	if q.Stage != nil {
		query += `WHERE stage = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
		args = append(args, string(*q.Stage), q.Limit, q.Offset)
	} else {
		query += `ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query document history: %w", err)
	}
	defer rows.Close()

	return l.collectDocuments(ctx, rows)
}

func (l *Ledger) CommitTransition(ctx context.Context, commit domain.TransitionCommit) error {
	if len(commit.Events) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "commit transition",
			fmt.Errorf("commit without audit events"))
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lastSequence int64
	row := tx.QueryRowContext(ctx, `SELECT last_sequence FROM documents WHERE id = $1 FOR UPDATE`, commit.DocumentID)
	if err := row.Scan(&lastSequence); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrNotFound, "commit transition",
				fmt.Errorf("document %s", commit.DocumentID))
		}
		return fmt.Errorf("lock document row: %w", err)
	}
	if lastSequence != commit.ExpectedSequence {
		return domain.WrapError(domain.ErrStaleTransition, "commit transition",
			fmt.Errorf("log at sequence %d, commit expected %d", lastSequence, commit.ExpectedSequence))
	}

	newSequence := commit.ExpectedSequence + int64(len(commit.Events))
	_, err = tx.ExecContext(ctx, `
UPDATE documents
SET stage = $2, vendor = $3, overall_confidence = $4, last_transition_at = $5, last_sequence = $6
WHERE id = $1
`, commit.DocumentID, string(commit.Stage), commit.Vendor, commit.OverallConfidence, commit.TransitionAt, newSequence)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	for _, f := range commit.FieldUpserts {
		_, err = tx.ExecContext(ctx, `
INSERT INTO document_fields (document_id, name, extracted_value, raw_text, confidence, corrected_value, edited_by, edited_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (document_id, name) DO UPDATE
SET extracted_value = EXCLUDED.extracted_value,
	raw_text = EXCLUDED.raw_text,
	confidence = EXCLUDED.confidence,
	corrected_value = EXCLUDED.corrected_value,
	edited_by = EXCLUDED.edited_by,
	edited_at = EXCLUDED.edited_at
`, commit.DocumentID, f.Name, f.ExtractedValue, f.RawText, f.Confidence, f.CorrectedValue, f.EditedBy, f.EditedAt)
		if err != nil {
			return fmt.Errorf("upsert field %s: %w", f.Name, err)
		}
	}

	for _, e := range commit.Events {
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}
	return nil
}

func (l *Ledger) AuditTrail(ctx context.Context, id string) ([]domain.AuditEvent, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT document_id, sequence, kind, actor, occurred_at, payload
FROM audit_events
WHERE document_id = $1
ORDER BY sequence ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var kind string
		if err := rows.Scan(&e.DocumentID, &e.Sequence, &kind, &e.Actor, &e.OccurredAt, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "audit trail",
			fmt.Errorf("document %s", id))
	}
	return events, nil
}

func (l *Ledger) Stats(ctx context.Context) (domain.WorkflowStats, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT stage, COUNT(*), COALESCE(AVG(overall_confidence), 0)
FROM documents
GROUP BY stage
`)
	if err != nil {
		return domain.WorkflowStats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := domain.WorkflowStats{ByStage: make(map[domain.Stage]int64)}
	var confidenceSum float64
	for rows.Next() {
		var stage string
		var count int64
		var avg float64
		if err := rows.Scan(&stage, &count, &avg); err != nil {
			return domain.WorkflowStats{}, fmt.Errorf("scan stats row: %w", err)
		}
		stats.ByStage[domain.Stage(stage)] = count
		stats.TotalDocuments += count
		confidenceSum += avg * float64(count)
	}
	if err := rows.Err(); err != nil {
		return domain.WorkflowStats{}, fmt.Errorf("iterate stats rows: %w", err)
	}
	if stats.TotalDocuments > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.TotalDocuments)
	}
	return stats, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e domain.AuditEvent) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO audit_events (document_id, sequence, kind, actor, occurred_at, payload)
VALUES ($1,$2,$3,$4,$5,$6)
`, e.DocumentID, e.Sequence, string(e.Kind), e.Actor, e.OccurredAt, []byte(e.Payload))
	if err != nil {
		return fmt.Errorf("insert audit event %d: %w", e.Sequence, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var stage string
	err := row.Scan(
		&doc.ID, &doc.Vendor, &doc.OriginalFilename, &doc.MimeType, &doc.StoragePath,
		&stage, &doc.OverallConfidence, &doc.LastSequence, &doc.CreatedAt, &doc.LastTransitionAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Stage = domain.Stage(stage)
	return &doc, nil
}

func (l *Ledger) collectDocuments(ctx context.Context, rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	var ids []string
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
		ids = append(ids, doc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	fields, err := l.loadFields(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Fields = fields[docs[i].ID]
	}
	return docs, nil
}

func (l *Ledger) loadFields(ctx context.Context, ids []string) (map[string][]domain.Field, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT document_id, name, extracted_value, raw_text, confidence, corrected_value, edited_by, edited_at
FROM document_fields
WHERE document_id = ANY($1)
ORDER BY document_id, name
`, ids)
	if err != nil {
		return nil, fmt.Errorf("query document fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Field)
	for rows.Next() {
		var docID string
		var f domain.Field
		if err := rows.Scan(&docID, &f.Name, &f.ExtractedValue, &f.RawText, &f.Confidence, &f.CorrectedValue, &f.EditedBy, &f.EditedAt); err != nil {
			return nil, fmt.Errorf("scan document field: %w", err)
		}
		out[docID] = append(out[docID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document fields: %w", err)
	}
	return out, nil
}
