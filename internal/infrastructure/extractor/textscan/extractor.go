// Package textscan is a deterministic extraction adapter for plain-text
// documents: it scans labeled lines for the canonical invoice fields and
// scores each match heuristically. It stands in for an external ML engine
// behind the same port.
package textscan

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
)

type fieldRule struct {
	name    string
	label   *regexp.Regexp
	strong  *regexp.Regexp
	strongC float64
	weakC   float64
}

var fieldRules = []fieldRule{
	{
		name:    "invoice_number",
		label:   regexp.MustCompile(`(?i)^invoice\s*(?:number|no\.?|#)\s*[:#]?\s*(.+)`),
		strong:  regexp.MustCompile(`^INV-\d+$`),
		strongC: 96, weakC: 78,
	},
	{
		name:    "vendor_name",
		label:   regexp.MustCompile(`(?i)^vendor(?:\s*name)?\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^[A-Z][\w&., -]{2,}$`),
		strongC: 90, weakC: 70,
	},
	{
		name:    "invoice_date",
		label:   regexp.MustCompile(`(?i)^invoice\s*date\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		strongC: 92, weakC: 60,
	},
	{
		name:    "due_date",
		label:   regexp.MustCompile(`(?i)^due\s*date\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		strongC: 92, weakC: 60,
	},
	{
		name:    "total_amount",
		label:   regexp.MustCompile(`(?i)^total(?:\s*amount)?\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^\$?[\d,]+\.\d{2}$`),
		strongC: 90, weakC: 62,
	},
	{
		name:    "tax_amount",
		label:   regexp.MustCompile(`(?i)^tax(?:\s*amount)?\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^\$?[\d,]+\.\d{2}$`),
		strongC: 88, weakC: 58,
	},
	{
		name:    "subtotal",
		label:   regexp.MustCompile(`(?i)^sub\s*total\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`^\$?[\d,]+\.\d{2}$`),
		strongC: 88, weakC: 58,
	},
	{
		name:    "payment_terms",
		label:   regexp.MustCompile(`(?i)^payment\s*terms\s*[:]\s*(.+)`),
		strong:  regexp.MustCompile(`(?i)^(net\s*\d+|due on receipt)$`),
		strongC: 85, weakC: 65,
	},
}

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

	return Scan(string(raw))
}

// Scan harvests the canonical invoice fields from text. An unreadable
// document (no recognizable field at all) is an extraction failure, which
// the workflow records as a terminal rejection.
func Scan(text string) (domain.ExtractionResult, error) {
	lines := strings.Split(text, "\n")

	var res domain.ExtractionResult
	for _, rule := range fieldRules {
		for _, line := range lines {
			m := rule.label.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			raw := strings.TrimSpace(m[1])
			if raw == "" {
				continue
			}
			confidence := rule.weakC
			if rule.strong.MatchString(raw) {
				confidence = rule.strongC
			}
			res.Fields = append(res.Fields, domain.ExtractedField{
				Name:       rule.name,
				Value:      raw,
				RawText:    strings.TrimSpace(line),
				Confidence: confidence,
			})
			break
		}
	}

	if len(res.Fields) == 0 {
		return domain.ExtractionResult{}, domain.WrapError(domain.ErrExtractionFailure, "scan fields",
			fmt.Errorf("no recognizable fields in %d lines", len(lines)))
	}

	var sum float64
	for _, f := range res.Fields {
		sum += f.Confidence
		if f.Name == "vendor_name" {
			res.Vendor = f.Value
		}
	}
	res.OverallConfidence = sum / float64(len(res.Fields))
	return res, nil
}
