package synth

import (
	"fmt"
	"os"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeGoogle EngineType = "google"
	EngineTypeAuto   EngineType = "auto" // pick the best available
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a synthesis engine. With EngineTypeAuto, Google is
// preferred when credentials are present, then espeak-ng if installed, then
// the mock engine. A non-empty cachePath wraps the engine in the synthesis
// cache.
func NewEngine(engineType string, cachePath string, sampleRate int) (Engine, error) {
	if engineType == EngineTypeAuto.String() {
		engineType = bestAvailableEngine().String()
	}

	var (
		engine Engine
		err    error
	)
	switch engineType {
	case EngineTypeMock.String():
		engine = NewMockEngine()
	case EngineTypeGoogle.String():
		engine, err = newGoogleEngine()
	case EngineTypeESpeak.String():
		engine, err = newESpeakEngine()
	default:
		return nil, fmt.Errorf("unsupported synthesis engine type: %s", engineType)
	}
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		return NewCachedEngine(engine, cachePath)
	}
	return engine, nil
}

// NewFallback picks a secondary engine for the orchestrator's final retry
// attempt. Returns nil when no distinct engine is available.
func NewFallback(primary Engine) Engine {
	if primary == nil {
		return nil
	}
	if primary.Name() != EngineTypeESpeak.String() {
		if engine, err := newESpeakEngine(); err == nil {
			return engine
		}
	}
	if primary.Name() != EngineTypeMock.String() {
		return NewMockEngine()
	}
	return nil
}

func bestAvailableEngine() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogle
	}
	if _, err := findESpeakExecutable(); err == nil {
		return EngineTypeESpeak
	}
	return EngineTypeMock
}

// AvailableEngines returns the engines usable in this environment.
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock}
	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, EngineTypeESpeak)
	}
	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogle)
	}
	return engines
}

// hasGoogleCredentials checks if Google Cloud credentials are available.
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
