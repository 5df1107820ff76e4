package assessment

import "fmt"

// Pipeline stages, used in StageError.
const (
	StageRetrieval = "retrieval"
	StageSynthesis = "synthesis"
)

// InvalidInputError rejects a query before any capability is touched.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// RetrievalError wraps a transport or auth failure of the search capability.
type RetrievalError struct {
	Cause error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Cause)
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

// SynthesisError wraps a transport or auth failure of the generative capability.
type SynthesisError struct {
	Cause error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// SynthesisFormatError means the generative capability answered but its output
// could not be coerced into a ComparisonRecord.
type SynthesisFormatError struct {
	Reason string
}

func (e *SynthesisFormatError) Error() string {
	return fmt.Sprintf("synthesis output malformed: %s", e.Reason)
}

// StageError attaches stage context to a mid-run failure. It is the only
// error shape the orchestrator returns for live-path failures; simulation is
// never substituted for one.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }
