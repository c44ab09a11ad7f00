package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"lessonforge/internal/lesson/audio"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/voice"
)

// RetryPolicy is the explicit per-line retry state machine:
//
//	Attempting(n) -> Succeeded | Attempting(n+1) | FellBack -> Succeeded | Exhausted
//
// Attempts 1..MaxAttempts-1 run the primary engine with the temperature
// lowered each time; the final attempt switches to the fallback engine when
// one is configured.
type RetryPolicy struct {
	MaxAttempts     int
	BaseTemperature float64
}

const (
	temperatureStep  = 0.2
	temperatureFloor = 0.1
)

// TemperatureFor returns the consistency setting for a 1-based attempt:
// stricter on every retry so a transient instability is less likely to
// repeat.
func (p RetryPolicy) TemperatureFor(attempt int) float64 {
	t := p.BaseTemperature - temperatureStep*float64(attempt-1)
	if t < temperatureFloor {
		t = temperatureFloor
	}
	return t
}

// FallsBack reports whether this attempt should run on the fallback engine.
func (p RetryPolicy) FallsBack(attempt int, haveFallback bool) bool {
	return haveFallback && p.MaxAttempts > 1 && attempt == p.MaxAttempts
}

// Orchestrator drives per-line synthesis with retries and fallback. It holds
// no mutable state across calls, so lines may be synthesized concurrently.
type Orchestrator struct {
	primary     Engine
	fallback    Engine
	registry    *voice.Registry
	policy      RetryPolicy
	sampleRate  int
	defaultRate float64
	workers     int
}

type OrchestratorOptions struct {
	Fallback    Engine
	Policy      RetryPolicy
	SampleRate  int
	DefaultRate float64 // script-wide speech rate, 0 = 1.0
	Workers     int     // parallel line synthesis, <=1 = sequential
}

func NewOrchestrator(primary Engine, registry *voice.Registry, opts OrchestratorOptions) *Orchestrator {
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy.MaxAttempts = 3
	}
	if opts.Policy.BaseTemperature <= 0 {
		opts.Policy.BaseTemperature = 0.7
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	if opts.DefaultRate <= 0 {
		opts.DefaultRate = 1.0
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Orchestrator{
		primary:     primary,
		fallback:    opts.Fallback,
		registry:    registry,
		policy:      opts.Policy,
		sampleRate:  opts.SampleRate,
		defaultRate: opts.DefaultRate,
		workers:     opts.Workers,
	}
}

// SynthesizeLine runs the retry state machine for one line. It never returns
// an error for a failed line; exhaustion is reported in the Result so the
// caller owns the abort-or-skip decision.
func (o *Orchestrator) SynthesizeLine(ctx context.Context, line script.Line) Result {
	ref, err := o.registry.Lookup(line.Speaker)
	if err != nil {
		// Misconfiguration, not a transient failure: no retries.
		return Result{LineID: line.ID, Attempts: 0, Err: err.Error()}
	}

	speed := line.SpeechRate
	if speed == 0 {
		speed = o.defaultRate
	}

	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		engine := o.primary
		if o.policy.FallsBack(attempt, o.fallback != nil) {
			engine = o.fallback
			logrus.WithFields(logrus.Fields{
				"line":   line.ID,
				"engine": engine.Name(),
			}).Warn("switching to fallback engine")
		}

		req := Request{
			Text:        line.Text,
			Voice:       ref,
			Emotion:     line.Emotion,
			Speed:       speed,
			Temperature: o.policy.TemperatureFor(attempt),
			SampleRate:  o.sampleRate,
		}

		data, synthErr := engine.Synthesize(ctx, req)
		if synthErr == nil {
			var clip audio.Clip
			clip, synthErr = audio.Decode(data, o.sampleRate)
			if synthErr == nil {
				logrus.WithFields(logrus.Fields{
					"line":     line.ID,
					"attempt":  attempt,
					"duration": clip.DurationMs(),
				}).Debug("synthesized line")
				return Result{
					LineID:     line.ID,
					Success:    true,
					Clip:       clip,
					DurationMs: clip.DurationMs(),
					SampleRate: o.sampleRate,
					Attempts:   attempt,
					Engine:     engine.Name(),
				}
			}
		}

		lastErr = synthErr
		logrus.WithError(synthErr).WithFields(logrus.Fields{
			"line":    line.ID,
			"attempt": attempt,
			"engine":  engine.Name(),
		}).Warn("synthesis attempt failed")

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("synthesis failed")
	}
	return Result{
		LineID:   line.ID,
		Attempts: o.policy.MaxAttempts,
		Err:      fmt.Sprintf("failed after %d attempts: %v", o.policy.MaxAttempts, lastErr),
	}
}

// SynthesizeScript synthesizes every line, optionally across a bounded
// worker pool. Results always come back in script order; ordering, not
// timing, is what the assembler depends on.
func (o *Orchestrator) SynthesizeScript(ctx context.Context, s *script.Script) []Result {
	results := make([]Result, len(s.Lines))

	if o.workers <= 1 {
		for i, line := range s.Lines {
			logrus.WithFields(logrus.Fields{
				"line":  line.ID,
				"total": len(s.Lines),
			}).Info("synthesizing line")
			results[i] = o.SynthesizeLine(ctx, line)
		}
		return results
	}

	type job struct {
		idx  int
		line script.Line
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = o.SynthesizeLine(ctx, j.line)
			}
		}()
	}
	for i, line := range s.Lines {
		jobs <- job{idx: i, line: line}
	}
	close(jobs)
	wg.Wait()

	return results
}
