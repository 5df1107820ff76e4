package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ecolens/backend/internal/assessment"
)

type rowPayload struct {
	Criterion string   `json:"criterion"`
	Values    []string `json:"values"`
	Verdict   string   `json:"verdict"`
}

const insufficientEvidenceNote = "Insufficient evidence was retrieved for this assessment."

// parseComparison coerces the model's answer into a ComparisonRecord. It never
// passes malformed structure through: any shape violation is a
// SynthesisFormatError.
func parseComparison(raw string, evidenceEmpty bool) (*assessment.ComparisonRecord, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		Subjects  []string     `json:"subjects"`
		Rows      []rowPayload `json:"rows"`
		Narrative string       `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &assessment.SynthesisFormatError{Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}

	if len(payload.Subjects) == 0 {
		return nil, &assessment.SynthesisFormatError{Reason: "no subjects"}
	}
	if len(payload.Rows) == 0 {
		return nil, &assessment.SynthesisFormatError{Reason: "no criterion rows"}
	}
	if strings.TrimSpace(payload.Narrative) == "" {
		return nil, &assessment.SynthesisFormatError{Reason: "empty narrative"}
	}

	rows := make([]assessment.CriterionRow, 0, len(payload.Rows))
	for i, row := range payload.Rows {
		if strings.TrimSpace(row.Criterion) == "" {
			return nil, &assessment.SynthesisFormatError{Reason: fmt.Sprintf("row %d has no criterion", i)}
		}
		if len(row.Values) != len(payload.Subjects) {
			return nil, &assessment.SynthesisFormatError{
				Reason: fmt.Sprintf("row %d has %d values for %d subjects", i, len(row.Values), len(payload.Subjects)),
			}
		}
		rows = append(rows, assessment.CriterionRow{
			Criterion: row.Criterion,
			Values:    row.Values,
			Verdict:   row.Verdict,
		})
	}

	narrative := strings.TrimSpace(payload.Narrative)
	if evidenceEmpty && !mentionsInsufficiency(narrative) {
		narrative = insufficientEvidenceNote + " " + narrative
	}

	return &assessment.ComparisonRecord{
		Subjects:   payload.Subjects,
		Rows:       rows,
		Narrative:  narrative,
		Provenance: assessment.ProvenanceLive,
	}, nil
}

func mentionsInsufficiency(narrative string) bool {
	lower := strings.ToLower(narrative)
	return strings.Contains(lower, "insufficient") || strings.Contains(lower, "no evidence")
}

// stripCodeFence removes a surrounding markdown fence, which some models emit
// even in JSON mode.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
