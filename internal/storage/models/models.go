package models

import "time"

// Comparison is the archive row for one completed pipeline run. The archive
// is an audit log; the in-memory session history remains the source the
// presentation layer reads during a session.
type Comparison struct {
	ID            string
	UserID        string
	QueryText     string
	SubjectsJSON  string
	RowsJSON      string
	Narrative     string
	Provenance    string
	EvidenceCount int
	LatencyMS     int
	CreatedAt     time.Time
}

// EvidenceRow archives one retrieved evidence item for a comparison.
type EvidenceRow struct {
	ID           int
	ComparisonID string
	Source       string
	URL          string
	Snippet      string
	RetrievedAt  time.Time
}
