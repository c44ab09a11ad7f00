package synth

import (
	"context"

	"lessonforge/internal/lesson/audio"
	"lessonforge/internal/lesson/script"
	"lessonforge/internal/lesson/voice"
)

// Request carries everything an engine needs for one utterance. Engines
// ignore hints they cannot express (espeak has no temperature, Google has no
// consistency knob); the orchestrator still threads them through so engines
// that do understand them behave deterministically across retries.
type Request struct {
	Text        string
	Voice       voice.Reference
	Emotion     script.Emotion
	Speed       float64 // speech rate multiplier, 1.0 = normal
	Temperature float64
	SampleRate  int
}

// Engine synthesizes one utterance to encoded audio bytes (WAV or MP3).
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, req Request) ([]byte, error)
	Voices(ctx context.Context) ([]string, error)
}

// CacheStats describes the synthesis cache, for the cache CLI commands.
type CacheStats struct {
	Directory   string
	CachedFiles int64
	TotalSizeMB float64
}

// Result is the outcome of synthesizing a single script line. The decoded
// clip is carried instead of raw bytes so the assembler never decodes twice;
// it is dropped after stitching.
type Result struct {
	LineID     int
	Success    bool
	Clip       audio.Clip
	DurationMs int
	SampleRate int
	Attempts   int
	Engine     string
	Err        string
}

// emotionSpeed maps an emotion hint to a speech-rate factor, mirroring how
// the synthesis engines render emphasis.
func emotionSpeed(e script.Emotion) float64 {
	switch e {
	case script.EmotionCheerful:
		return 1.05
	case script.EmotionSerious:
		return 0.95
	case script.EmotionExcited:
		return 1.1
	default:
		return 1.0
	}
}

// emotionPitch maps an emotion hint to a semitone pitch offset for engines
// that support pitch.
func emotionPitch(e script.Emotion) float64 {
	switch e {
	case script.EmotionCheerful, script.EmotionExcited:
		return 1.0
	case script.EmotionSerious:
		return -1.0
	default:
		return 0
	}
}
