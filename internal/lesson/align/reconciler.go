package align

import (
	"strings"
	"unicode"

	"lessonforge/internal/lesson/timeline"
)

// AlignedSegment is a line's final timing, with provenance back to the
// provisional estimate. Immutable once produced.
type AlignedSegment struct {
	LineID          int     `json:"line_id"`
	OriginalStartMs int     `json:"original_start_ms"`
	OriginalEndMs   int     `json:"original_end_ms"`
	AlignedStartMs  int     `json:"aligned_start_ms"`
	AlignedEndMs    int     `json:"aligned_end_ms"`
	DriftMs         int     `json:"drift_ms"`
	Confidence      float64 `json:"confidence"`
}

// Flag reasons attached to lines the reconciler thinks a human (or the
// pipeline driver) should look at. Flags are reports, never automatic
// retries.
const (
	FlagWERExceeded     = "wer_exceeded"
	FlagAlignerUnderrun = "aligner_underrun"
)

type Flag struct {
	LineID int     `json:"line_id"`
	Reason string  `json:"reason"`
	WER    float64 `json:"wer,omitempty"`
}

// Report is the reconciliation outcome for a whole lesson.
type Report struct {
	Segments        []AlignedSegment `json:"segments"`
	Flags           []Flag           `json:"flags,omitempty"`
	TotalAbsDriftMs int              `json:"total_abs_drift_ms"`
	Passthrough     bool             `json:"passthrough"`
}

// Reconciler compares provisional timings against ASR word timestamps and
// corrects material drift. Confidence: 1.0 when the provisional window is
// kept, 0.9 when the aligned window is adopted.
type Reconciler struct {
	DriftThresholdMs int
	WERThreshold     float64
}

const adoptedConfidence = 0.9

// Passthrough copies provisional timings unchanged, for when alignment is
// disabled or the aligner is unavailable. Downstream stages never
// special-case an absent aligner.
func (r Reconciler) Passthrough(provisional []timeline.Segment) Report {
	segments := make([]AlignedSegment, 0, len(provisional))
	for _, seg := range provisional {
		segments = append(segments, AlignedSegment{
			LineID:          seg.LineID,
			OriginalStartMs: seg.StartMs,
			OriginalEndMs:   seg.EndMs,
			AlignedStartMs:  seg.StartMs,
			AlignedEndMs:    seg.EndMs,
			DriftMs:         0,
			Confidence:      1.0,
		})
	}
	return Report{Segments: segments, Passthrough: true}
}

// Reconcile partitions the flat word list back into lines by expected word
// count and applies the drift decision rule per line. The word cursor only
// moves forward: a word is never reused across lines and the list is never
// read past its end.
func (r Reconciler) Reconcile(words []Word, provisional []timeline.Segment, texts map[int]string) Report {
	report := Report{}
	idx := 0

	for _, seg := range provisional {
		tokens := Tokenize(texts[seg.LineID])
		aligned := AlignedSegment{
			LineID:          seg.LineID,
			OriginalStartMs: seg.StartMs,
			OriginalEndMs:   seg.EndMs,
			AlignedStartMs:  seg.StartMs,
			AlignedEndMs:    seg.EndMs,
			Confidence:      1.0,
		}

		if len(tokens) == 0 {
			report.Segments = append(report.Segments, aligned)
			continue
		}

		remaining := len(words) - idx
		take := len(tokens)
		underrun := false
		if take > remaining {
			take = remaining
			underrun = true
		}

		if take == 0 {
			// Nothing left to consume; keep provisional timing but mark it.
			aligned.Confidence = adoptedConfidence
			report.Flags = append(report.Flags, Flag{LineID: seg.LineID, Reason: FlagAlignerUnderrun})
			report.Segments = append(report.Segments, aligned)
			continue
		}

		consumed := words[idx : idx+take]
		idx += take

		windowStart := consumed[0].StartMs
		windowEnd := consumed[len(consumed)-1].EndMs

		// Average of start and end drift; integer division truncates
		// toward zero.
		drift := ((windowStart - seg.StartMs) + (windowEnd - seg.EndMs)) / 2
		aligned.DriftMs = drift
		report.TotalAbsDriftMs += abs(drift)

		// Exclusive threshold: drift exactly at the threshold keeps the
		// provisional window, avoiding subtitle jitter from ASR noise.
		if abs(drift) > r.DriftThresholdMs {
			aligned.AlignedStartMs = windowStart
			aligned.AlignedEndMs = windowEnd
			aligned.Confidence = adoptedConfidence
		}

		if underrun {
			aligned.Confidence = adoptedConfidence
			report.Flags = append(report.Flags, Flag{LineID: seg.LineID, Reason: FlagAlignerUnderrun})
		}

		if wer := wordErrorRate(tokens, consumed); wer > r.WERThreshold {
			report.Flags = append(report.Flags, Flag{LineID: seg.LineID, Reason: FlagWERExceeded, WER: wer})
		}

		report.Segments = append(report.Segments, aligned)
	}

	return report
}

// Tokenize splits source text into the words the ASR pass is expected to
// produce: lowercased, punctuation stripped. Word count is the partition
// key, so this must agree with what the aligner counts as a word.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' {
				return r
			}
			return -1
		}, f)
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}

// wordErrorRate is word-level Levenshtein distance over the expected tokens,
// normalized by the expected count.
func wordErrorRate(expected []string, recognized []Word) float64 {
	if len(expected) == 0 {
		return 0
	}
	got := make([]string, 0, len(recognized))
	for _, w := range recognized {
		tokens := Tokenize(w.Text)
		got = append(got, tokens...)
	}

	prev := make([]int, len(got)+1)
	curr := make([]int, len(got)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(expected); i++ {
		curr[0] = i
		for j := 1; j <= len(got); j++ {
			cost := 1
			if expected[i-1] == got[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return float64(prev[len(got)]) / float64(len(expected))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
