package simulate

import (
	"fmt"
	"strings"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/pkg/utils"
)

// criterion describes one row of the simulated decision matrix. Figures are
// derived from the query text, bounded to the plausible range for the unit.
type criterion struct {
	name           string
	unit           string
	min, span      float64
	higherIsBetter bool
}

var criteria = []criterion{
	{name: "Global Warming Potential", unit: "kg CO2e/kg", min: 0.5, span: 11.5},
	{name: "Water Usage", unit: "L/kg", min: 50, span: 9500},
	{name: "Energy Demand", unit: "MJ/kg", min: 5, span: 145},
	{name: "Recyclability", unit: "%", min: 10, span: 85, higherIsBetter: true},
}

// Simulator produces a plausible comparison record without touching any
// external capability. It is a pure function of the query: the same query
// always yields the same subjects, figures, and narrative. It never fails.
type Simulator struct{}

func New() *Simulator {
	return &Simulator{}
}

// Simulate builds a SIMULATED record for the query. The orchestrator stamps
// ID, timestamps, and latency afterwards.
func (s *Simulator) Simulate(query string) *assessment.ComparisonRecord {
	subjects := SplitSubjects(query)
	if len(subjects) == 0 {
		return &assessment.ComparisonRecord{
			Query:      query,
			Subjects:   []string{"unspecified subject"},
			Rows:       []assessment.CriterionRow{},
			Narrative:  "Safe mode: no assessable subject could be read from the query, so no decision matrix was produced. Rephrase the query as a material or product name, optionally as \"A vs B\".",
			Provenance: assessment.ProvenanceSimulated,
		}
	}

	rows := make([]assessment.CriterionRow, 0, len(criteria))
	wins := make(map[string]int, len(subjects))
	for _, c := range criteria {
		row := assessment.CriterionRow{
			Criterion: fmt.Sprintf("%s (%s)", c.name, c.unit),
			Values:    make([]string, len(subjects)),
		}

		bestIdx := 0
		var bestVal float64
		for i, subject := range subjects {
			val := c.figure(query, subject)
			row.Values[i] = formatFigure(val)
			if i == 0 || (c.higherIsBetter && val > bestVal) || (!c.higherIsBetter && val < bestVal) {
				bestVal = val
				bestIdx = i
			}
		}

		if len(subjects) > 1 {
			row.Verdict = subjects[bestIdx]
			wins[subjects[bestIdx]]++
		}
		rows = append(rows, row)
	}

	return &assessment.ComparisonRecord{
		Query:      query,
		Subjects:   subjects,
		Rows:       rows,
		Narrative:  buildNarrative(subjects, wins),
		Provenance: assessment.ProvenanceSimulated,
	}
}

// figure derives a stable value in [min, min+span) from the query and subject.
func (c criterion) figure(query, subject string) float64 {
	h := utils.HashUint64(query + "|" + subject + "|" + c.name)
	return c.min + float64(h%10000)/10000*c.span
}

func formatFigure(v float64) string {
	if v >= 100 {
		return fmt.Sprintf("%.0f (est)", v)
	}
	return fmt.Sprintf("%.1f (est)", v)
}

func buildNarrative(subjects []string, wins map[string]int) string {
	var builder strings.Builder
	builder.WriteString("Safe mode: live search and analysis capabilities were unavailable, so this matrix contains synthesized estimates, not retrieved data. ")

	if len(subjects) == 1 {
		fmt.Fprintf(&builder, "A standalone profile was generated for %s; add a second subject for a comparative verdict.", subjects[0])
		return builder.String()
	}

	winner := subjects[0]
	for _, subject := range subjects {
		if wins[subject] > wins[winner] {
			winner = subject
		}
	}
	fmt.Fprintf(&builder, "Across the assessed impact categories, %s is preferred: it leads in %d of %d criteria.",
		winner, wins[winner], len(criteria))
	return builder.String()
}
