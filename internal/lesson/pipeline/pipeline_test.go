package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lessonforge/internal/config"
	"lessonforge/internal/lesson/align"
	"lessonforge/internal/lesson/audio"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/srt"
	"lessonforge/internal/lesson/synth"
	"lessonforge/internal/lesson/voice"
)

// stubEngine synthesizes 400ms of audible tone per word and fails for any
// speaker named "broken".
type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) Synthesize(_ context.Context, req synth.Request) ([]byte, error) {
	if req.Voice.SpeakerID == "broken" {
		return nil, errors.New("speaker is broken")
	}
	durationMs := len(strings.Fields(req.Text)) * 400
	clip := audio.Clip{Samples: make([]float64, durationMs*req.SampleRate/1000), Rate: req.SampleRate}
	for i := range clip.Samples {
		clip.Samples[i] = 0.4
	}
	return audio.WAVBytes(clip)
}

func (stubEngine) Voices(context.Context) ([]string, error) { return []string{"stub"}, nil }

type stubAligner struct {
	words []align.Word
	err   error
}

func (a stubAligner) Align(context.Context, []byte, int) ([]align.Word, error) {
	return a.words, a.err
}

func testConfig() config.Config {
	return config.Config{
		Audio: config.AudioConfig{SampleRate: 24000, Format: "wav", TargetDbFS: -16},
		Synthesis: config.SynthesisConfig{
			MaxAttempts:      1,
			Temperature:      0.7,
			InitialSilenceMs: 300,
			DefaultPauseMs:   400,
		},
		Alignment: config.AlignmentConfig{DriftThresholdMs: 200, WERThreshold: 0.10},
	}
}

func testPipeline(aligner align.Aligner) *Pipeline {
	return &Pipeline{
		cfg:    testConfig(),
		engine: stubEngine{},
		registry: voice.NewFromMap(map[string]string{
			"alice":  "voice-a",
			"bob":    "voice-b",
			"broken": "voice-x",
		}),
		aligner: aligner,
	}
}

func lessonScript(id string, speakers ...string) *script.Script {
	s := &script.Script{LessonID: id, Title: "Test Lesson"}
	for i, speaker := range speakers {
		s.Lines = append(s.Lines, script.Line{
			ID:           i + 1,
			Speaker:      speaker,
			Text:         "hello there",
			Emotion:      script.EmotionNeutral,
			PauseAfterMs: -1,
		})
	}
	return s
}

func TestGenerateWritesArtifacts(t *testing.T) {
	p := testPipeline(nil)
	outDir := t.TempDir()

	out, err := p.Generate(context.Background(), lessonScript("lesson-001", "alice", "bob"), outDir)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, path := range []string{
		filepath.Join(outDir, "lesson-001.wav"),
		filepath.Join(outDir, "lesson-001.srt"),
		filepath.Join(outDir, "lesson-001.json"),
	} {
		if _, statErr := os.Stat(path); statErr != nil {
			t.Errorf("missing artifact %s: %v", path, statErr)
		}
	}

	if out.AudioFile != filepath.Join(outDir, "lesson-001.wav") {
		t.Errorf("AudioFile = %q", out.AudioFile)
	}
	if len(out.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(out.Segments))
	}
	// Two words at 400ms each: line 1 at 300-1100, line 2 at 1500-2300,
	// audio runs to 2700 with the trailing pause.
	if out.Segments[0].StartMs != 300 || out.Segments[0].EndMs != 1100 {
		t.Errorf("segment 1 = %d-%d, want 300-1100", out.Segments[0].StartMs, out.Segments[0].EndMs)
	}
	if out.Segments[1].StartMs != 1500 || out.Segments[1].EndMs != 2300 {
		t.Errorf("segment 2 = %d-%d, want 1500-2300", out.Segments[1].StartMs, out.Segments[1].EndMs)
	}
	if out.SpeechEndMs != 2300 {
		t.Errorf("SpeechEndMs = %d, want 2300", out.SpeechEndMs)
	}
	if out.DurationMs != 2700 {
		t.Errorf("DurationMs = %d, want 2700", out.DurationMs)
	}

	// Without an aligner every confidence is provisional 1.0 and quality
	// is perfect.
	for i, seg := range out.Segments {
		if seg.Confidence != 1.0 {
			t.Errorf("segment %d confidence = %v, want 1.0", i, seg.Confidence)
		}
	}
	if out.Metadata.QualityScore != 1.0 {
		t.Errorf("QualityScore = %v, want 1.0", out.Metadata.QualityScore)
	}

	srtData, readErr := os.ReadFile(out.SRTFile)
	if readErr != nil {
		t.Fatal(readErr)
	}
	entries, parseErr := srt.Parse(string(srtData))
	if parseErr != nil {
		t.Fatalf("written SRT does not parse: %v", parseErr)
	}
	if len(entries) != 2 {
		t.Fatalf("SRT has %d entries, want 2", len(entries))
	}
	if entries[0].StartMs != 300 || entries[0].EndMs != 1100 {
		t.Errorf("SRT entry 1 window = %d-%d, want 300-1100", entries[0].StartMs, entries[0].EndMs)
	}
}

func TestGenerateToleratesFewFailures(t *testing.T) {
	p := testPipeline(nil)

	// One of five lines failing is exactly the 20% limit, which is allowed.
	out, err := p.Generate(context.Background(),
		lessonScript("lesson-002", "alice", "bob", "alice", "bob", "broken"), t.TempDir())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(out.Segments) != 4 {
		t.Errorf("got %d segments, want 4", len(out.Segments))
	}
	if len(out.Metadata.FailedLineIDs) != 1 || out.Metadata.FailedLineIDs[0] != 5 {
		t.Errorf("FailedLineIDs = %v, want [5]", out.Metadata.FailedLineIDs)
	}
}

func TestGenerateAbortsOnTooManyFailures(t *testing.T) {
	p := testPipeline(nil)

	_, err := p.Generate(context.Background(),
		lessonScript("lesson-003", "alice", "broken", "bob", "broken", "alice"), t.TempDir())
	if err == nil {
		t.Fatal("expected abort at 40% failures")
	}

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %T is not a pipeline Error", err)
	}
	if perr.Kind != KindSynthesisExhausted {
		t.Errorf("Kind = %q, want %q", perr.Kind, KindSynthesisExhausted)
	}
	if perr.LineID != 2 {
		t.Errorf("LineID = %d, want first failed line 2", perr.LineID)
	}
}

func TestGenerateRejectsInvalidScript(t *testing.T) {
	p := testPipeline(nil)

	_, err := p.Generate(context.Background(), &script.Script{LessonID: "x"}, t.TempDir())
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindMalformedScript {
		t.Errorf("error = %v, want %q", err, KindMalformedScript)
	}
}

func TestGenerateFromFileMalformed(t *testing.T) {
	p := testPipeline(nil)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := p.GenerateFromFile(context.Background(), path, t.TempDir())
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindMalformedScript {
		t.Errorf("error = %v, want %q", err, KindMalformedScript)
	}

	_, err = p.GenerateFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), t.TempDir())
	if err == nil {
		t.Error("expected error for missing script file")
	}
}

func TestGenerateAdoptsAlignedTimings(t *testing.T) {
	// Provisional window for the single line is 300-1100; the aligner
	// hears the words at 600-1400, a drift of 300ms past the 200ms
	// threshold.
	aligner := stubAligner{words: []align.Word{
		{Text: "hello", StartMs: 600, EndMs: 1000},
		{Text: "there", StartMs: 1000, EndMs: 1400},
	}}
	p := testPipeline(aligner)

	out, err := p.Generate(context.Background(), lessonScript("lesson-004", "alice"), t.TempDir())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	seg := out.Segments[0]
	if seg.StartMs != 600 || seg.EndMs != 1400 {
		t.Errorf("segment window = %d-%d, want adopted 600-1400", seg.StartMs, seg.EndMs)
	}
	if seg.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9 for an adopted window", seg.Confidence)
	}
	if out.SpeechEndMs != 1400 {
		t.Errorf("SpeechEndMs = %d, want aligned end 1400", out.SpeechEndMs)
	}
	// 300ms drift hits the 0.5 penalty cap: 0.9 * 0.5.
	if out.Metadata.QualityScore != 0.45 {
		t.Errorf("QualityScore = %v, want 0.45", out.Metadata.QualityScore)
	}
}

func TestGenerateSurvivesAlignerFailure(t *testing.T) {
	p := testPipeline(stubAligner{err: errors.New("whisper exploded")})

	out, err := p.Generate(context.Background(), lessonScript("lesson-005", "alice"), t.TempDir())
	if err != nil {
		t.Fatalf("Generate() error = %v, aligner failures must not abort", err)
	}
	if out.Segments[0].StartMs != 300 || out.Segments[0].EndMs != 1100 {
		t.Errorf("segment window = %d-%d, want provisional 300-1100",
			out.Segments[0].StartMs, out.Segments[0].EndMs)
	}
	if out.Segments[0].Confidence != 1.0 {
		t.Errorf("Confidence = %v, want provisional 1.0", out.Segments[0].Confidence)
	}
}

func TestGenerateBatch(t *testing.T) {
	p := testPipeline(nil)
	scriptDir := t.TempDir()
	outDir := t.TempDir()

	good := filepath.Join(scriptDir, "good.json")
	if err := os.WriteFile(good, []byte(`{
		"lesson_id": "batch-a",
		"title": "Good",
		"lines": [{"id": 1, "speaker": "alice", "text": "hello there"}]
	}`), 0644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(scriptDir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	results := p.GenerateBatch(context.Background(), []string{good, bad}, outDir, 2)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ScriptPath != good || results[1].ScriptPath != bad {
		t.Error("results are not in input order")
	}
	if results[0].Err != nil {
		t.Errorf("good script failed: %v", results[0].Err)
	}
	if results[0].Output == nil || results[0].Output.LessonID != "batch-a" {
		t.Errorf("good script output = %+v", results[0].Output)
	}
	if results[1].Err == nil {
		t.Error("bad script should fail")
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindSynthesisExhausted, 7, errors.New("boom"))
	if got := err.Error(); got != "synthesis_exhausted (line 7): boom" {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(newError(KindEmptyTimeline, 0, errors.New("boom")).Error(), "empty_timeline: boom") {
		t.Error("unscoped error should omit the line clause")
	}
}
