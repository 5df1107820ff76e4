package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/internal/metrics"
	"github.com/ecolens/backend/internal/storage/models"
	"github.com/ecolens/backend/pkg/logger"
)

// Retriever is the scout capability: free-text query in, evidence out.
type Retriever interface {
	Search(ctx context.Context, query string) (assessment.EvidenceSet, error)
}

// Synthesizer is the analyst capability: evidence in, structured record out.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, evidence assessment.EvidenceSet) (*assessment.ComparisonRecord, error)
}

// Simulator is the fallback producing a deterministic SIMULATED record.
type Simulator interface {
	Simulate(query string) *assessment.ComparisonRecord
}

// History is the session-scoped record log.
type History interface {
	Append(record assessment.ComparisonRecord)
	All() []assessment.ComparisonRecord
	Len() int
}

// Archive is the optional durable audit log. Failures are logged, never
// surfaced: the archive carries no contract.
type Archive interface {
	InsertComparison(record *models.Comparison) error
	InsertEvidence(row *models.EvidenceRow) error
}

// Orchestrator sequences scout → analyst, or delegates the whole call to the
// simulator when capabilities are absent. See Run for the contract.
type Orchestrator struct {
	Scout    Retriever
	Analyst  Synthesizer
	Fallback Simulator
	Creds    Credentials
	History  History
	Archive  Archive
}

type Request struct {
	Query  string
	UserID string
}

// Run executes one pipeline call.
//
// The query must be non-empty after trimming. Capability availability is
// resolved once, up front; a run is either wholly live or wholly simulated,
// never mixed, and a mid-run failure surfaces as a StageError instead of
// silently degrading to simulation. Exactly one history append happens per
// successful run, none on failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*assessment.ComparisonRecord, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, &assessment.InvalidInputError{Reason: "query is empty"}
	}

	start := time.Now()
	id := uuid.New().String()
	live := o.Creds.SearchAvailable() && o.Creds.GenerationAvailable()

	logger.Info("Pipeline run started",
		zap.String("run_id", id),
		zap.String("query", query),
		zap.Bool("live", live),
	)

	var (
		record   *assessment.ComparisonRecord
		evidence assessment.EvidenceSet
	)

	if live {
		var err error
		evidence, err = o.Scout.Search(ctx, query)
		if err != nil {
			metrics.StageFailures.WithLabelValues(assessment.StageRetrieval).Inc()
			metrics.ComparisonTotal.WithLabelValues("error", string(assessment.ProvenanceLive)).Inc()
			return nil, &assessment.StageError{Stage: assessment.StageRetrieval, Cause: err}
		}
		metrics.EvidenceRetrieved.Observe(float64(len(evidence)))

		// An empty evidence set is a "no data" outcome: the analyst still
		// runs and reports the insufficiency in its narrative.
		record, err = o.Analyst.Synthesize(ctx, query, evidence)
		if err != nil {
			metrics.StageFailures.WithLabelValues(assessment.StageSynthesis).Inc()
			metrics.ComparisonTotal.WithLabelValues("error", string(assessment.ProvenanceLive)).Inc()
			return nil, &assessment.StageError{Stage: assessment.StageSynthesis, Cause: err}
		}
	} else {
		record = o.Fallback.Simulate(query)
	}

	record.ID = id
	record.Query = query
	record.EvidenceCount = len(evidence)
	record.LatencyMS = int(time.Since(start).Milliseconds())
	record.CreatedAt = time.Now()

	o.History.Append(*record)
	metrics.HistorySize.Set(float64(o.History.Len()))
	o.archive(record, req.UserID, evidence)

	metrics.ComparisonDuration.WithLabelValues(string(record.Provenance)).Observe(time.Since(start).Seconds())
	metrics.ComparisonTotal.WithLabelValues("ok", string(record.Provenance)).Inc()

	logger.Info("Pipeline run completed",
		zap.String("run_id", id),
		zap.String("provenance", string(record.Provenance)),
		zap.Int("evidence", len(evidence)),
		zap.Int("latency_ms", record.LatencyMS),
	)
	return record, nil
}

// SessionHistory exposes the session log snapshot for the presentation layer.
func (o *Orchestrator) SessionHistory() []assessment.ComparisonRecord {
	return o.History.All()
}

func (o *Orchestrator) archive(record *assessment.ComparisonRecord, userID string, evidence assessment.EvidenceSet) {
	if o.Archive == nil {
		return
	}

	subjectsJSON, _ := json.Marshal(record.Subjects)
	rowsJSON, _ := json.Marshal(record.Rows)

	err := o.Archive.InsertComparison(&models.Comparison{
		ID:            record.ID,
		UserID:        userID,
		QueryText:     record.Query,
		SubjectsJSON:  string(subjectsJSON),
		RowsJSON:      string(rowsJSON),
		Narrative:     record.Narrative,
		Provenance:    string(record.Provenance),
		EvidenceCount: record.EvidenceCount,
		LatencyMS:     record.LatencyMS,
		CreatedAt:     record.CreatedAt,
	})
	if err != nil {
		logger.Warn("Failed to archive comparison", zap.String("run_id", record.ID), zap.Error(err))
		return
	}

	for _, item := range evidence {
		err := o.Archive.InsertEvidence(&models.EvidenceRow{
			ComparisonID: record.ID,
			Source:       item.Source,
			URL:          item.URL,
			Snippet:      item.Snippet,
			RetrievedAt:  item.RetrievedAt,
		})
		if err != nil {
			logger.Warn("Failed to archive evidence", zap.String("run_id", record.ID), zap.Error(err))
		}
	}
}
