package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotFound reports a speaker with no registered voice. Lookup returns it
// wrapped so misconfigured scripts fail loudly instead of falling back to a
// default voice.
var ErrNotFound = errors.New("voice not found")

// Reference points a speaker id at an engine voice and, when present, a
// reference audio clip for voice-cloning engines.
type Reference struct {
	SpeakerID     string
	EngineVoice   string // engine-specific voice name, may be empty
	ReferencePath string // path to reference .wav, may be empty
}

// Registry maps speaker ids to voice references. It is loaded once per run
// and read-only afterwards.
type Registry struct {
	refs map[string]Reference
}

// Load builds a registry from a voices directory (each *.wav registers its
// file stem as a speaker id) merged with an explicit speaker -> engine voice
// map. Entries from the map win when both exist.
func Load(dir string, voiceMap map[string]string) (*Registry, error) {
	refs := make(map[string]Reference)

	if dir != "" {
		matches, err := filepath.Glob(filepath.Join(dir, "*.wav"))
		if err != nil {
			return nil, fmt.Errorf("scan voices directory: %w", err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
				logrus.WithField("dir", dir).Warn("voices directory not found")
			}
		}
		for _, path := range matches {
			id := strings.TrimSuffix(filepath.Base(path), ".wav")
			refs[id] = Reference{SpeakerID: id, ReferencePath: path}
			logrus.WithField("speaker", id).Debug("registered voice reference")
		}
	}

	for speaker, engineVoice := range voiceMap {
		ref := refs[speaker]
		ref.SpeakerID = speaker
		ref.EngineVoice = engineVoice
		refs[speaker] = ref
	}

	return &Registry{refs: refs}, nil
}

// NewFromMap builds a registry directly from speaker -> engine voice pairs.
func NewFromMap(voiceMap map[string]string) *Registry {
	refs := make(map[string]Reference, len(voiceMap))
	for speaker, engineVoice := range voiceMap {
		refs[speaker] = Reference{SpeakerID: speaker, EngineVoice: engineVoice}
	}
	return &Registry{refs: refs}
}

// Lookup resolves a speaker id.
func (r *Registry) Lookup(speaker string) (Reference, error) {
	ref, ok := r.refs[speaker]
	if !ok {
		return Reference{}, fmt.Errorf("speaker %q: %w", speaker, ErrNotFound)
	}
	return ref, nil
}

// Speakers lists the registered speaker ids.
func (r *Registry) Speakers() []string {
	ids := make([]string, 0, len(r.refs))
	for id := range r.refs {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int { return len(r.refs) }
