package pipeline

import "fmt"

// Kind classifies pipeline failures.
type Kind string

const (
	// KindSynthesisExhausted: too many lines failed after all retries and
	// the fallback engine.
	KindSynthesisExhausted Kind = "synthesis_exhausted"
	// KindAlignmentUnavailable: the aligner errored or timed out. Never
	// fatal; the run degrades to provisional timings.
	KindAlignmentUnavailable Kind = "alignment_unavailable"
	// KindEmptyTimeline: zero successful segments after assembly. Always
	// fatal, no partial output is written.
	KindEmptyTimeline Kind = "empty_timeline"
	// KindMalformedScript: the script failed validation before the core ran.
	KindMalformedScript Kind = "malformed_script"
)

// Error is a structured pipeline failure: kind plus the line it concerns,
// when one applies.
type Error struct {
	Kind   Kind
	LineID int // 0 when not line-scoped
	Err    error
}

func (e *Error) Error() string {
	if e.LineID > 0 {
		return fmt.Sprintf("%s (line %d): %v", e.Kind, e.LineID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, lineID int, err error) *Error {
	return &Error{Kind: kind, LineID: lineID, Err: err}
}
