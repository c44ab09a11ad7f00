package pipeline

import (
	"lessonforge/internal/lesson/align"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/srt"
)

// Segment is one timeline record entry with final timing.
type Segment struct {
	ID         int     `json:"id"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	StartMs    int     `json:"start_ms"`
	EndMs      int     `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// Metadata records how the lesson was generated.
type Metadata struct {
	EngineVersion string       `json:"engine_version"`
	GeneratedAt   string       `json:"generated_at"`
	QualityScore  float64      `json:"quality_score"`
	FailedLineIDs []int        `json:"failed_line_ids,omitempty"`
	Flags         []align.Flag `json:"flags,omitempty"`
}

// Output is the terminal artifact: written once, then immutable.
// DurationMs is the audio length including the trailing pause;
// SpeechEndMs is where the last subtitle ends (the initial silence when no
// segments exist).
type Output struct {
	LessonID    string    `json:"lesson_id"`
	Title       string    `json:"title"`
	AudioFile   string    `json:"audio_file"`
	SRTFile     string    `json:"srt_file"`
	DurationMs  int       `json:"duration_ms"`
	SpeechEndMs int       `json:"speech_end_ms"`
	Segments    []Segment `json:"segments"`
	Metadata    Metadata  `json:"metadata"`
}

// compose turns reconciled segments into subtitle text and the timeline
// record entries. Subtitle blocks are numbered 1..n sequentially,
// independent of the original line ids. Returns the timeline duration: the
// last segment's end, or the initial silence when no segments exist.
func compose(aligned []align.AlignedSegment, s *script.Script, initialSilenceMs int) (string, []Segment, int) {
	speakers := make(map[int]string, len(s.Lines))
	texts := s.TextsByID()
	for _, line := range s.Lines {
		speakers[line.ID] = line.Speaker
	}

	entries := make([]srt.Entry, 0, len(aligned))
	segments := make([]Segment, 0, len(aligned))
	duration := initialSilenceMs

	for _, seg := range aligned {
		entries = append(entries, srt.Entry{
			StartMs: seg.AlignedStartMs,
			EndMs:   seg.AlignedEndMs,
			Text:    texts[seg.LineID],
		})
		segments = append(segments, Segment{
			ID:         seg.LineID,
			Speaker:    speakers[seg.LineID],
			Text:       texts[seg.LineID],
			StartMs:    seg.AlignedStartMs,
			EndMs:      seg.AlignedEndMs,
			Confidence: seg.Confidence,
		})
		duration = seg.AlignedEndMs
	}

	return srt.Generate(entries), segments, duration
}

// qualityScore is the mean segment confidence discounted by drift: half a
// second of drift costs the full 0.5 penalty cap.
func qualityScore(report align.Report) float64 {
	if len(report.Segments) == 0 {
		return 1.0
	}
	total := 0.0
	for _, seg := range report.Segments {
		drift := seg.DriftMs
		if drift < 0 {
			drift = -drift
		}
		penalty := float64(drift) / 500.0
		if penalty > 0.5 {
			penalty = 0.5
		}
		total += seg.Confidence * (1.0 - penalty)
	}
	return total / float64(len(report.Segments))
}
