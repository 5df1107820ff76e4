package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/internal/history"
	"github.com/ecolens/backend/internal/simulate"
)

type fakeScout struct {
	evidence assessment.EvidenceSet
	err      error
	calls    int
}

func (f *fakeScout) Search(_ context.Context, _ string) (assessment.EvidenceSet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.evidence, nil
}

type fakeAnalyst struct {
	record       *assessment.ComparisonRecord
	err          error
	calls        int
	lastEvidence assessment.EvidenceSet
}

func (f *fakeAnalyst) Synthesize(_ context.Context, query string, evidence assessment.EvidenceSet) (*assessment.ComparisonRecord, error) {
	f.calls++
	f.lastEvidence = evidence
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.record
	rec.Query = query
	return &rec, nil
}

type staticCreds struct {
	search bool
	gen    bool
}

func (c staticCreds) SearchAvailable() bool     { return c.search }
func (c staticCreds) GenerationAvailable() bool { return c.gen }

func liveRecord() *assessment.ComparisonRecord {
	return &assessment.ComparisonRecord{
		Subjects: []string{"aluminum can", "glass bottle"},
		Rows: []assessment.CriterionRow{
			{Criterion: "Global Warming Potential (kg CO2e/kg)", Values: []string{"2.1", "1.3"}, Verdict: "glass bottle"},
			{Criterion: "Water Usage (L/kg)", Values: []string{"130", "90"}, Verdict: "glass bottle"},
			{Criterion: "Recyclability (%)", Values: []string{"76", "80"}, Verdict: "glass bottle"},
		},
		Narrative:  "Glass bottle is preferred across the assessed criteria.",
		Provenance: assessment.ProvenanceLive,
	}
}

func evidenceSet(n int) assessment.EvidenceSet {
	set := make(assessment.EvidenceSet, 0, n)
	for i := 0; i < n; i++ {
		set = append(set, assessment.EvidenceItem{
			Source:  fmt.Sprintf("Source %d", i+1),
			URL:     fmt.Sprintf("https://example.org/%d", i+1),
			Snippet: "lifecycle data",
		})
	}
	return set
}

func TestRunLiveSequence(t *testing.T) {
	scout := &fakeScout{evidence: evidenceSet(3)}
	analyst := &fakeAnalyst{record: liveRecord()}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{search: true, gen: true},
		History:  store,
	}

	record, err := o.Run(context.Background(), Request{Query: "aluminum can vs glass bottle"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if record.Provenance != assessment.ProvenanceLive {
		t.Errorf("provenance = %q, want LIVE", record.Provenance)
	}
	if record.ID == "" {
		t.Error("record has no ID")
	}
	if record.EvidenceCount != 3 {
		t.Errorf("evidence count = %d, want 3", record.EvidenceCount)
	}
	if len(record.Rows) < 3 {
		t.Errorf("rows = %d, want at least 3", len(record.Rows))
	}
	if scout.calls != 1 || analyst.calls != 1 {
		t.Errorf("scout calls = %d, analyst calls = %d, want 1 each", scout.calls, analyst.calls)
	}
	if len(analyst.lastEvidence) != 3 {
		t.Errorf("analyst saw %d evidence items, want 3", len(analyst.lastEvidence))
	}
	if store.Len() != 1 {
		t.Errorf("history has %d records, want 1", store.Len())
	}
}

func TestRunSimulatedWhenCredentialsAbsent(t *testing.T) {
	scout := &fakeScout{evidence: evidenceSet(3)}
	analyst := &fakeAnalyst{record: liveRecord()}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{},
		History:  store,
	}

	record, err := o.Run(context.Background(), Request{Query: "bamboo fiber vs cotton"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if record.Provenance != assessment.ProvenanceSimulated {
		t.Errorf("provenance = %q, want SIMULATED", record.Provenance)
	}
	if scout.calls != 0 || analyst.calls != 0 {
		t.Errorf("live capabilities touched: scout=%d analyst=%d", scout.calls, analyst.calls)
	}
	if store.Len() != 1 {
		t.Errorf("history has %d records, want 1", store.Len())
	}
}

func TestRunPartialCredentialsSimulate(t *testing.T) {
	cases := []struct {
		name  string
		creds staticCreds
	}{
		{"search only", staticCreds{search: true}},
		{"generation only", staticCreds{gen: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scout := &fakeScout{evidence: evidenceSet(2)}
			analyst := &fakeAnalyst{record: liveRecord()}

			o := &Orchestrator{
				Scout:    scout,
				Analyst:  analyst,
				Fallback: simulate.New(),
				Creds:    tc.creds,
				History:  history.NewStore(),
			}

			record, err := o.Run(context.Background(), Request{Query: "steel"})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if record.Provenance != assessment.ProvenanceSimulated {
				t.Errorf("provenance = %q, want SIMULATED", record.Provenance)
			}
			if scout.calls != 0 || analyst.calls != 0 {
				t.Error("partial credentials must not trigger a live call")
			}
		})
	}
}

func TestRunRejectsBlankQuery(t *testing.T) {
	scout := &fakeScout{}
	analyst := &fakeAnalyst{record: liveRecord()}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{search: true, gen: true},
		History:  store,
	}

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := o.Run(context.Background(), Request{Query: query})
		var invalid *assessment.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("query %q: err = %v, want InvalidInputError", query, err)
		}
	}

	if scout.calls != 0 || analyst.calls != 0 {
		t.Error("blank query must not touch any capability")
	}
	if store.Len() != 0 {
		t.Errorf("history has %d records, want 0", store.Len())
	}
}

func TestRunRetrievalFailure(t *testing.T) {
	scout := &fakeScout{err: &assessment.RetrievalError{Cause: errors.New("connection refused")}}
	analyst := &fakeAnalyst{record: liveRecord()}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{search: true, gen: true},
		History:  store,
	}

	_, err := o.Run(context.Background(), Request{Query: "hemp"})

	var stageErr *assessment.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Stage != assessment.StageRetrieval {
		t.Errorf("stage = %q, want %q", stageErr.Stage, assessment.StageRetrieval)
	}
	var retrievalErr *assessment.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Error("StageError does not wrap the RetrievalError")
	}
	if analyst.calls != 0 {
		t.Error("analyst invoked after retrieval failure")
	}
	if store.Len() != 0 {
		t.Errorf("history has %d records after failure, want 0", store.Len())
	}
}

func TestRunSynthesisFailureNoAppend(t *testing.T) {
	scout := &fakeScout{evidence: evidenceSet(2)}
	analyst := &fakeAnalyst{err: &assessment.SynthesisError{Cause: errors.New("quota exceeded")}}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{search: true, gen: true},
		History:  store,
	}

	_, err := o.Run(context.Background(), Request{Query: "hemp vs jute"})

	var stageErr *assessment.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Stage != assessment.StageSynthesis {
		t.Errorf("stage = %q, want %q", stageErr.Stage, assessment.StageSynthesis)
	}
	if store.Len() != 0 {
		t.Errorf("history has %d records after failure, want 0", store.Len())
	}
}

func TestRunEmptyEvidenceStillSynthesizes(t *testing.T) {
	rec := liveRecord()
	rec.Narrative = "Insufficient evidence was retrieved for this assessment. Figures shown are estimates."

	scout := &fakeScout{evidence: assessment.EvidenceSet{}}
	analyst := &fakeAnalyst{record: rec}
	store := history.NewStore()

	o := &Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds:    staticCreds{search: true, gen: true},
		History:  store,
	}

	record, err := o.Run(context.Background(), Request{Query: "obscurium"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if analyst.calls != 1 {
		t.Errorf("analyst calls = %d, want 1 (empty evidence is not a failure)", analyst.calls)
	}
	if record.EvidenceCount != 0 {
		t.Errorf("evidence count = %d, want 0", record.EvidenceCount)
	}
	if record.Provenance != assessment.ProvenanceLive {
		t.Errorf("provenance = %q, want LIVE", record.Provenance)
	}
	if store.Len() != 1 {
		t.Errorf("history has %d records, want 1", store.Len())
	}
}

func TestRunConcurrentAppends(t *testing.T) {
	store := history.NewStore()
	o := &Orchestrator{
		Scout:    &fakeScout{},
		Analyst:  &fakeAnalyst{record: liveRecord()},
		Fallback: simulate.New(),
		Creds:    staticCreds{},
		History:  store,
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.Run(context.Background(), Request{Query: fmt.Sprintf("material %d", i)})
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != n {
		t.Errorf("history has %d records, want %d", store.Len(), n)
	}

	seen := make(map[string]bool, n)
	for _, rec := range store.All() {
		if seen[rec.ID] {
			t.Errorf("duplicate record ID %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}
