package assessment

import "time"

// Provenance marks which path produced a record. Downstream consumers branch
// on this flag programmatically; a simulated record is never presented as live.
type Provenance string

const (
	ProvenanceLive      Provenance = "LIVE"
	ProvenanceSimulated Provenance = "SIMULATED"
)

// EvidenceItem is one snippet of retrieved material. Immutable once created.
type EvidenceItem struct {
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Snippet     string    `json:"snippet"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// EvidenceSet preserves retrieval order. An empty set is a valid outcome, not
// a failure.
type EvidenceSet []EvidenceItem

// CriterionRow is one row of the decision matrix. Values are aligned with the
// record's Subjects slice.
type CriterionRow struct {
	Criterion string   `json:"criterion"`
	Values    []string `json:"values"`
	Verdict   string   `json:"verdict,omitempty"`
}

// ComparisonRecord is the structured result of one pipeline run.
type ComparisonRecord struct {
	ID            string         `json:"id"`
	Query         string         `json:"query"`
	Subjects      []string       `json:"subjects"`
	Rows          []CriterionRow `json:"rows"`
	Narrative     string         `json:"narrative"`
	Provenance    Provenance     `json:"provenance"`
	EvidenceCount int            `json:"evidence_count"`
	LatencyMS     int            `json:"latency_ms"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Simulated reports whether the record came from the fallback path.
func (r *ComparisonRecord) Simulated() bool {
	return r.Provenance == ProvenanceSimulated
}
