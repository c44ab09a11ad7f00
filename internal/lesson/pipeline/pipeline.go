package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lessonforge/internal/config"
	"lessonforge/internal/lesson/align"
	"lessonforge/internal/lesson/audio"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/synth"
	"lessonforge/internal/lesson/timeline"
	"lessonforge/internal/lesson/voice"
)

// maxFailureRatio is the fraction of lines allowed to fail synthesis before
// the whole lesson aborts; below it the lesson proceeds with gaps, and the
// failed ids are recorded in the output metadata.
const maxFailureRatio = 0.2

// Pipeline drives one lesson through synthesis, assembly, normalization,
// alignment and output composition. Safe for concurrent Generate calls:
// everything mutable lives in the call.
type Pipeline struct {
	cfg      config.Config
	engine   synth.Engine
	fallback synth.Engine
	registry *voice.Registry
	aligner  align.Aligner
}

// New wires a pipeline from resolved configuration.
func New(cfg config.Config) (*Pipeline, error) {
	engine, err := synth.NewEngine(cfg.TTS.Engine, cfg.TTS.CachePath, cfg.Audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("create synthesis engine: %w", err)
	}

	registry, err := voice.Load(cfg.Voices.Directory, cfg.Voices.Map)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		engine:   engine,
		fallback: synth.NewFallback(engine),
		registry: registry,
	}
	if cfg.Alignment.Enabled {
		p.aligner = align.NewWhisperAligner(cfg.Alignment.Command)
	}
	return p, nil
}

// Engine exposes the synthesis engine for the voices and cache commands.
func (p *Pipeline) Engine() synth.Engine { return p.engine }

// GenerateFromFile parses a script file and generates the lesson into
// outputDir.
func (p *Pipeline) GenerateFromFile(ctx context.Context, scriptPath, outputDir string) (*Output, error) {
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := script.Parse(data)
	if err != nil {
		return nil, newError(KindMalformedScript, 0, err)
	}
	return p.Generate(ctx, s, outputDir)
}

// Generate runs the full pipeline for one parsed script.
func (p *Pipeline) Generate(ctx context.Context, s *script.Script, outputDir string) (*Output, error) {
	log := logrus.WithField("lesson", s.LessonID)

	if errs := s.Validate(); len(errs) > 0 {
		return nil, newError(KindMalformedScript, 0, errors.New(strings.Join(errs, "; ")))
	}
	log.WithField("lines", len(s.Lines)).Info("script validated")

	// Synthesis
	defaultRate := 0.0
	if s.Settings != nil {
		defaultRate = s.Settings.SpeechRate
	}
	orch := synth.NewOrchestrator(p.engine, p.registry, synth.OrchestratorOptions{
		Fallback: p.fallback,
		Policy: synth.RetryPolicy{
			MaxAttempts:     p.cfg.Synthesis.MaxAttempts,
			BaseTemperature: p.cfg.Synthesis.Temperature,
		},
		SampleRate:  p.cfg.Audio.SampleRate,
		DefaultRate: defaultRate,
		Workers:     p.cfg.Synthesis.Workers,
	})
	results := orch.SynthesizeScript(ctx, s)

	var failedIDs []int
	for _, r := range results {
		if !r.Success {
			failedIDs = append(failedIDs, r.LineID)
		}
	}
	if len(failedIDs) > 0 {
		ratio := float64(len(failedIDs)) / float64(len(s.Lines))
		if ratio > maxFailureRatio {
			return nil, newError(KindSynthesisExhausted, failedIDs[0],
				fmt.Errorf("%d of %d lines failed synthesis", len(failedIDs), len(s.Lines)))
		}
		log.WithField("failed_lines", failedIDs).Warn("proceeding with synthesis gaps")
	}

	// Assembly
	assembler := timeline.Assembler{
		SampleRate:       p.cfg.Audio.SampleRate,
		InitialSilenceMs: p.cfg.Synthesis.InitialSilenceMs,
		DefaultPauseMs:   p.cfg.Synthesis.DefaultPauseMs,
	}
	assembly := assembler.Assemble(results, s)
	if len(assembly.Segments) == 0 {
		return nil, newError(KindEmptyTimeline, 0, errors.New("no successful segments after assembly"))
	}
	log.WithFields(logrus.Fields{
		"segments": len(assembly.Segments),
		"duration": assembly.TotalDurationMs,
	}).Info("timeline assembled")

	// Normalization: uniform gain only, timing stays valid.
	stream := audio.Normalize(assembly.Clip, p.cfg.Audio.TargetDbFS)

	// Alignment
	report := p.reconcile(ctx, stream, assembly.Segments, s, log)

	// Compose and write artifacts
	initialSilence := s.InitialSilence(p.cfg.Synthesis.InitialSilenceMs)
	srtText, segments, speechEnd := compose(report.Segments, s, initialSilence)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	wavPath := filepath.Join(outputDir, s.LessonID+".wav")
	if err := writeWAV(wavPath, stream); err != nil {
		return nil, err
	}
	audioPath := wavPath
	if p.cfg.Audio.Format == "mp3" {
		mp3Path := filepath.Join(outputDir, s.LessonID+".mp3")
		if err := exportMP3(ctx, wavPath, mp3Path, p.cfg.Audio.MP3Bitrate); err != nil {
			log.WithError(err).Warn("mp3 export failed, keeping wav")
		} else {
			audioPath = mp3Path
		}
	}

	srtPath := filepath.Join(outputDir, s.LessonID+".srt")
	if err := os.WriteFile(srtPath, []byte(srtText), 0644); err != nil {
		return nil, fmt.Errorf("write srt: %w", err)
	}

	output := &Output{
		LessonID:    s.LessonID,
		Title:       s.Title,
		AudioFile:   audioPath,
		SRTFile:     srtPath,
		DurationMs:  assembly.TotalDurationMs,
		SpeechEndMs: speechEnd,
		Segments:    segments,
		Metadata: Metadata{
			EngineVersion: p.engine.Name(),
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			QualityScore:  qualityScore(report),
			FailedLineIDs: failedIDs,
			Flags:         report.Flags,
		},
	}

	jsonPath := filepath.Join(outputDir, s.LessonID+".json")
	doc, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	if err := os.WriteFile(jsonPath, doc, 0644); err != nil {
		return nil, fmt.Errorf("write timeline: %w", err)
	}

	log.WithFields(logrus.Fields{
		"audio":   output.AudioFile,
		"quality": fmt.Sprintf("%.2f", output.Metadata.QualityScore),
	}).Info("generation complete")
	return output, nil
}

// reconcile runs forced alignment when available, degrading to a provisional
// passthrough on any aligner failure. Alignment problems never abort a run.
func (p *Pipeline) reconcile(ctx context.Context, stream audio.Clip, provisional []timeline.Segment, s *script.Script, log *logrus.Entry) align.Report {
	reconciler := align.Reconciler{
		DriftThresholdMs: p.cfg.Alignment.DriftThresholdMs,
		WERThreshold:     p.cfg.Alignment.WERThreshold,
	}

	if p.aligner == nil {
		return reconciler.Passthrough(provisional)
	}

	wavData, err := audio.WAVBytes(stream)
	if err != nil {
		log.WithError(err).Warn("alignment unavailable, using provisional timings")
		return reconciler.Passthrough(provisional)
	}
	words, err := p.aligner.Align(ctx, wavData, stream.Rate)
	if err != nil {
		log.WithError(newError(KindAlignmentUnavailable, 0, err)).Warn("alignment unavailable, using provisional timings")
		return reconciler.Passthrough(provisional)
	}

	report := reconciler.Reconcile(words, provisional, s.TextsByID())
	log.WithFields(logrus.Fields{
		"total_drift": report.TotalAbsDriftMs,
		"flags":       len(report.Flags),
	}).Info("alignment reconciled")
	return report
}

func writeWAV(path string, clip audio.Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := audio.EncodeWAV(f, clip); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
