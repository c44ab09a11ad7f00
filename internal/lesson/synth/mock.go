package synth

import (
	"context"
	"math"
	"strings"

	"lessonforge/internal/lesson/audio"
)

// MockEngine produces deterministic tone clips for dry runs and tests. Clip
// length follows a 150-words-per-minute reading pace scaled by the requested
// speed, so timelines built on it are stable across runs.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (m *MockEngine) Name() string { return EngineTypeMock.String() }

func (m *MockEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	rate := req.SampleRate
	if rate == 0 {
		rate = 24000
	}
	speed := req.Speed * emotionSpeed(req.Emotion)
	if speed <= 0 {
		speed = 1.0
	}

	words := len(strings.Fields(req.Text))
	if words == 0 {
		words = 1
	}
	durationMs := int(float64(words) * 400 / speed) // 150 wpm pace

	clip := audio.Silence(durationMs, rate)
	for i := range clip.Samples {
		clip.Samples[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return audio.WAVBytes(clip)
}

func (m *MockEngine) Voices(ctx context.Context) ([]string, error) {
	return []string{"mock-voice"}, nil
}
