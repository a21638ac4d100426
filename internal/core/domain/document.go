package domain

import "time"

type Stage string

const (
	StageUploaded    Stage = "uploaded"
	StageExtracting  Stage = "extracting"
	StageNeedsReview Stage = "needs_review"
	StageApproved    Stage = "approved"
	StageArchived    Stage = "archived"
	StageRejected    Stage = "rejected"
)

// Terminal reports whether no transition may leave the stage.
func (s Stage) Terminal() bool {
	return s == StageArchived || s == StageRejected
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Field is one extracted datum of a document. The extracted value and the
// raw OCR text are never overwritten; a human correction is layered on top.
type Field struct {
	Name           string     `json:"name"`
	ExtractedValue string     `json:"extracted_value"`
	RawText        string     `json:"raw_text"`
	Confidence     float64    `json:"confidence"`
	CorrectedValue *string    `json:"corrected_value,omitempty"`
	EditedBy       string     `json:"edited_by,omitempty"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
}

// EffectiveValue is the value consumers should use: the human correction
// when one exists, the extracted value otherwise.
func (f Field) EffectiveValue() string {
	if f.CorrectedValue != nil {
		return *f.CorrectedValue
	}
	return f.ExtractedValue
}

// EffectiveConfidence treats a human-verified value as fully trusted.
func (f Field) EffectiveConfidence() float64 {
	if f.CorrectedValue != nil {
		return 100
	}
	return f.Confidence
}

type Document struct {
	ID                string    `json:"id"`
	Vendor            string    `json:"vendor"`
	OriginalFilename  string    `json:"original_filename"`
	MimeType          string    `json:"mime_type"`
	StoragePath       string    `json:"storage_path"`
	Stage             Stage     `json:"stage"`
	OverallConfidence float64   `json:"overall_confidence"`
	Priority          Priority  `json:"priority"`
	CreatedAt         time.Time `json:"created_at"`
	LastTransitionAt  time.Time `json:"last_transition_at"`

	// LastSequence is the sequence number of the latest audit event.
	// Callers use it as the optimistic-concurrency token for writes.
	LastSequence int64 `json:"last_sequence"`

	Fields []Field `json:"fields,omitempty"`
}

// Field returns the named field or ErrNotFound. Absent fields are genuinely
// absent; no defaulting happens here.
func (d *Document) Field(name string) (*Field, error) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], nil
		}
	}
	return nil, WrapError(ErrNotFound, "lookup field", fieldMissingError(name))
}

type fieldMissingError string

func (e fieldMissingError) Error() string { return "field " + string(e) + " not present" }

// RecomputeConfidence sets OverallConfidence to the arithmetic mean of the
// current (corrected-or-extracted) field confidences.
func (d *Document) RecomputeConfidence() {
	if len(d.Fields) == 0 {
		d.OverallConfidence = 0
		return
	}
	var sum float64
	for _, f := range d.Fields {
		sum += f.EffectiveConfidence()
	}
	d.OverallConfidence = sum / float64(len(d.Fields))
}

// Thresholds holds the configurable triage policy: the auto-approve gate and
// the review priority bands.
type Thresholds struct {
	AutoApprove         float64
	HighPriorityBelow   float64
	MediumPriorityBelow float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoApprove:         90,
		HighPriorityBelow:   50,
		MediumPriorityBelow: 80,
	}
}

func (t Thresholds) Normalize() Thresholds {
	out := t
	def := DefaultThresholds()
	if out.AutoApprove <= 0 || out.AutoApprove > 100 {
		out.AutoApprove = def.AutoApprove
	}
	if out.HighPriorityBelow <= 0 {
		out.HighPriorityBelow = def.HighPriorityBelow
	}
	if out.MediumPriorityBelow <= out.HighPriorityBelow {
		out.MediumPriorityBelow = def.MediumPriorityBelow
	}
	return out
}

// PriorityFor derives the review priority band for a confidence score.
func (t Thresholds) PriorityFor(confidence float64) Priority {
	switch {
	case confidence < t.HighPriorityBelow:
		return PriorityHigh
	case confidence < t.MediumPriorityBelow:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ExtractedField is one entry of an extraction result before it becomes a
// document Field.
type ExtractedField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResult is the confidence-annotated field set produced by the
// external extraction engine.
type ExtractionResult struct {
	Vendor            string           `json:"vendor,omitempty"`
	Fields            []ExtractedField `json:"fields"`
	OverallConfidence float64          `json:"overall_confidence"`
}

// WorkflowStats is the per-stage count summary exposed by the read side.
type WorkflowStats struct {
	ByStage           map[Stage]int64 `json:"by_stage"`
	TotalDocuments    int64           `json:"total_documents"`
	AverageConfidence float64         `json:"average_confidence"`
}
