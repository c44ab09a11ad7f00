package timeline

import (
	"github.com/sirupsen/logrus"

	"lessonforge/internal/lesson/audio"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/synth"
)

// Segment is the provisional timing of one line inside the stitched stream.
// Invariant: EndMs == StartMs + AudioDurationMs, and the next segment starts
// at EndMs plus this line's pause.
type Segment struct {
	LineID          int `json:"line_id"`
	StartMs         int `json:"start_ms"`
	EndMs           int `json:"end_ms"`
	AudioDurationMs int `json:"audio_duration_ms"`
}

// Assembly is the stitched stream plus its provisional timeline.
// TotalDurationMs includes the trailing pause after the last line, so it is
// the audio length, not the last segment's end.
type Assembly struct {
	Clip            audio.Clip
	Segments        []Segment
	TotalDurationMs int
}

// Assembler concatenates per-line clips into one stream, inserting initial
// silence and inter-line pauses, and records each line's offsets. Purely a
// function of its inputs: identical inputs yield identical assemblies.
type Assembler struct {
	SampleRate       int
	InitialSilenceMs int
	DefaultPauseMs   int
}

// Assemble walks the script in order, appending each successful line's clip
// (edges trimmed of synthesis silence) and its pause. Failed lines
// contribute no audio and no timing; the cursor stays continuous across
// them, and reporting the gap is the caller's job.
func (a Assembler) Assemble(results []synth.Result, s *script.Script) Assembly {
	byLine := make(map[int]synth.Result, len(results))
	for _, r := range results {
		byLine[r.LineID] = r
	}

	initial := s.InitialSilence(a.InitialSilenceMs)
	combined := audio.Silence(initial, a.SampleRate)
	cursor := initial

	var segments []Segment
	for _, line := range s.Lines {
		result, ok := byLine[line.ID]
		if !ok || !result.Success {
			continue
		}

		clip := result.Clip.TrimEdges()
		if clip.Empty() {
			logrus.WithField("line", line.ID).Warn("clip is pure silence after trimming")
		}

		durationMs := clip.DurationMs()
		// Clamp the clip to a whole millisecond boundary so sample counts
		// and the millisecond cursor never disagree.
		clip.Samples = clip.Samples[:durationMs*a.SampleRate/1000]

		seg := Segment{
			LineID:          line.ID,
			StartMs:         cursor,
			EndMs:           cursor + durationMs,
			AudioDurationMs: durationMs,
		}
		segments = append(segments, seg)
		combined = combined.Append(clip)
		cursor = seg.EndMs

		pause := s.PauseAfter(line, a.DefaultPauseMs)
		if pause > 0 {
			combined = combined.Append(audio.Silence(pause, a.SampleRate))
			cursor += pause
		}
	}

	return Assembly{
		Clip:            combined,
		Segments:        segments,
		TotalDurationMs: cursor,
	}
}
