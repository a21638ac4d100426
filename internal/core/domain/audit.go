package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	EventUpload          EventKind = "upload"
	EventExtract         EventKind = "extract"
	EventStageTransition EventKind = "stage-transition"
	EventFieldCorrection EventKind = "field-correction"
	EventApprove         EventKind = "approve"
	EventReject          EventKind = "reject"
)

// ActorSystem marks transitions driven by the pipeline rather than a human.
const (
	ActorSystem    = "system"
	ActorExtractor = "system:extractor"
)

// AuditEvent is one immutable entry of a document's audit trail. Sequence
// numbers are strictly increasing and gapless per document.
type AuditEvent struct {
	DocumentID string          `json:"document_id"`
	Sequence   int64           `json:"sequence"`
	Kind       EventKind       `json:"kind"`
	Actor      string          `json:"actor"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type UploadPayload struct {
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`
	StoragePath      string `json:"storage_path"`
}

type ExtractPayload struct {
	Vendor            string           `json:"vendor,omitempty"`
	Fields            []ExtractedField `json:"fields"`
	OverallConfidence float64          `json:"overall_confidence"`
}

type TransitionPayload struct {
	From   Stage  `json:"from"`
	To     Stage  `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type CorrectionPayload struct {
	Field          string `json:"field"`
	PreviousValue  string `json:"previous_value"`
	CorrectedValue string `json:"corrected_value"`
}

type ReviewPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewEvent builds an audit event with an encoded payload. Payload encoding
// of the types above cannot fail; an encoding error means a programming bug
// and is surfaced as ErrInvalidInput.
func NewEvent(documentID string, sequence int64, kind EventKind, actor string, at time.Time, payload any) (AuditEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return AuditEvent{}, WrapError(ErrInvalidInput, "encode audit payload", err)
	}
	return AuditEvent{
		DocumentID: documentID,
		Sequence:   sequence,
		Kind:       kind,
		Actor:      actor,
		OccurredAt: at,
		Payload:    raw,
	}, nil
}

// DecodePayload unpacks an event payload into its kind-specific shape.
func DecodePayload[T any](e AuditEvent) (T, error) {
	var out T
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return out, WrapError(ErrCorruptAuditLog, "decode audit payload", err)
	}
	return out, nil
}

// Replay folds a document's full event sequence from empty state. It is the
// authoritative recovery path: the result must match the live record at any
// durably flushed point of the log.
func Replay(documentID string, events []AuditEvent) (*Document, error) {
	if len(events) == 0 {
		return nil, WrapError(ErrNotFound, "replay", fmt.Errorf("no events for document %s", documentID))
	}

	var doc *Document
	var lastSeq int64
	for _, e := range events {
		if e.Sequence != lastSeq+1 {
			return nil, WrapError(ErrCorruptAuditLog, "replay",
				fmt.Errorf("sequence gap: got %d after %d", e.Sequence, lastSeq))
		}
		lastSeq = e.Sequence

		if doc == nil {
			if e.Kind != EventUpload {
				return nil, WrapError(ErrCorruptAuditLog, "replay",
					fmt.Errorf("log starts with %q, want %q", e.Kind, EventUpload))
			}
			p, err := DecodePayload[UploadPayload](e)
			if err != nil {
				return nil, err
			}
			doc = &Document{
				ID:               e.DocumentID,
				OriginalFilename: p.OriginalFilename,
				MimeType:         p.MimeType,
				StoragePath:      p.StoragePath,
				Stage:            StageUploaded,
				CreatedAt:        e.OccurredAt,
				LastTransitionAt: e.OccurredAt,
			}
			doc.LastSequence = e.Sequence
			continue
		}

		if err := applyEvent(doc, e); err != nil {
			return nil, err
		}
		doc.LastSequence = e.Sequence
	}
	return doc, nil
}

func applyEvent(doc *Document, e AuditEvent) error {
	switch e.Kind {
	case EventUpload:
		return WrapError(ErrCorruptAuditLog, "replay",
			fmt.Errorf("duplicate upload event at sequence %d", e.Sequence))

	case EventExtract:
		p, err := DecodePayload[ExtractPayload](e)
		if err != nil {
			return err
		}
		doc.Vendor = p.Vendor
		doc.Fields = doc.Fields[:0]
		for _, f := range p.Fields {
			doc.Fields = append(doc.Fields, Field{
				Name:           f.Name,
				ExtractedValue: f.Value,
				RawText:        f.RawText,
				Confidence:     f.Confidence,
			})
		}
		doc.OverallConfidence = p.OverallConfidence

	case EventStageTransition:
		p, err := DecodePayload[TransitionPayload](e)
		if err != nil {
			return err
		}
		if doc.Stage != p.From {
			return WrapError(ErrCorruptAuditLog, "replay",
				fmt.Errorf("transition from %q recorded while document at %q", p.From, doc.Stage))
		}
		doc.Stage = p.To
		doc.LastTransitionAt = e.OccurredAt

	case EventFieldCorrection:
		p, err := DecodePayload[CorrectionPayload](e)
		if err != nil {
			return err
		}
		field, err := doc.Field(p.Field)
		if err != nil {
			return WrapError(ErrCorruptAuditLog, "replay", err)
		}
		corrected := p.CorrectedValue
		at := e.OccurredAt
		field.CorrectedValue = &corrected
		field.EditedBy = e.Actor
		field.EditedAt = &at
		doc.RecomputeConfidence()

	case EventApprove, EventReject:
		// Marker events: the stage change is carried by the paired
		// stage-transition event.

	default:
		return WrapError(ErrCorruptAuditLog, "replay",
			fmt.Errorf("unknown event kind %q at sequence %d", e.Kind, e.Sequence))
	}
	return nil
}
