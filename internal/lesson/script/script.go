package script

import (
	"encoding/json"
	"fmt"
)

// Emotion hints handed to the synthesis engine.
type Emotion string

const (
	EmotionNeutral  Emotion = "neutral"
	EmotionFriendly Emotion = "friendly"
	EmotionCheerful Emotion = "cheerful"
	EmotionSerious  Emotion = "serious"
	EmotionExcited  Emotion = "excited"
)

func (e Emotion) Valid() bool {
	switch e {
	case EmotionNeutral, EmotionFriendly, EmotionCheerful, EmotionSerious, EmotionExcited:
		return true
	}
	return false
}

// Line is a single line of dialogue. Identity is ID, unique within a script.
type Line struct {
	ID           int     `json:"id"`
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
	Emotion      Emotion `json:"emotion,omitempty"`
	PauseAfterMs int     `json:"pause_after_ms"`
	SpeechRate   float64 `json:"speech_rate,omitempty"` // 0 means unset
}

// Settings are script-wide synthesis defaults.
type Settings struct {
	SpeechRate       float64 `json:"speech_rate,omitempty"`
	InitialSilenceMs int     `json:"initial_silence_ms,omitempty"`
	DefaultPauseMs   int     `json:"default_pause_ms,omitempty"`
}

// Script is the parsed conversation script for one lesson.
type Script struct {
	LessonID string    `json:"lesson_id"`
	Title    string    `json:"title"`
	Level    string    `json:"level,omitempty"`
	Lines    []Line    `json:"lines"`
	Settings *Settings `json:"settings,omitempty"`
}

const (
	maxTextLen    = 5000
	maxPauseMs    = 5000
	minSpeechRate = 0.5
	maxSpeechRate = 1.5
)

// Parse decodes a script document. pause_after_ms defaults to -1 so that an
// explicit 0 can be told apart from "not set" (which falls back to the
// script or app default).
func Parse(data []byte) (*Script, error) {
	var raw struct {
		LessonID string          `json:"lesson_id"`
		Title    string          `json:"title"`
		Level    string          `json:"level"`
		Lines    []rawLine       `json:"lines"`
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	s := &Script{
		LessonID: raw.LessonID,
		Title:    raw.Title,
		Level:    raw.Level,
	}
	for _, rl := range raw.Lines {
		line := Line{
			ID:           rl.ID,
			Speaker:      rl.Speaker,
			Text:         rl.Text,
			Emotion:      rl.Emotion,
			PauseAfterMs: -1,
			SpeechRate:   rl.SpeechRate,
		}
		if rl.PauseAfterMs != nil {
			line.PauseAfterMs = *rl.PauseAfterMs
		}
		if line.Emotion == "" {
			line.Emotion = EmotionNeutral
		}
		s.Lines = append(s.Lines, line)
	}
	if len(raw.Settings) > 0 {
		var settings Settings
		if err := json.Unmarshal(raw.Settings, &settings); err != nil {
			return nil, fmt.Errorf("parse script settings: %w", err)
		}
		s.Settings = &settings
	}
	return s, nil
}

type rawLine struct {
	ID           int     `json:"id"`
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
	Emotion      Emotion `json:"emotion"`
	PauseAfterMs *int    `json:"pause_after_ms"`
	SpeechRate   float64 `json:"speech_rate"`
}

// Validate returns every problem found, not just the first, so a script
// author can fix a whole file in one pass.
func (s *Script) Validate() []string {
	var errs []string

	if s.LessonID == "" {
		errs = append(errs, "lesson_id is required")
	}
	if s.Title == "" {
		errs = append(errs, "title is required")
	}
	if len(s.Lines) == 0 {
		errs = append(errs, "script must have at least one line")
		return errs
	}

	seen := make(map[int]bool, len(s.Lines))
	for i, line := range s.Lines {
		prefix := fmt.Sprintf("line %d (id=%d)", i+1, line.ID)

		if line.ID <= 0 {
			errs = append(errs, prefix+": id must be a positive integer")
		}
		if seen[line.ID] {
			errs = append(errs, prefix+": duplicate line id")
		}
		seen[line.ID] = true

		if line.Speaker == "" {
			errs = append(errs, prefix+": speaker is required")
		}
		if line.Text == "" {
			errs = append(errs, prefix+": text is required")
		} else if len(line.Text) > maxTextLen {
			errs = append(errs, fmt.Sprintf("%s: text is too long (max %d characters)", prefix, maxTextLen))
		}
		if !line.Emotion.Valid() {
			errs = append(errs, fmt.Sprintf("%s: invalid emotion %q", prefix, line.Emotion))
		}
		if line.PauseAfterMs > maxPauseMs {
			errs = append(errs, fmt.Sprintf("%s: pause_after_ms too long (max %dms)", prefix, maxPauseMs))
		}
		if line.PauseAfterMs < -1 {
			errs = append(errs, prefix+": pause_after_ms cannot be negative")
		}
		if line.SpeechRate != 0 && (line.SpeechRate < minSpeechRate || line.SpeechRate > maxSpeechRate) {
			errs = append(errs, fmt.Sprintf("%s: speech_rate must be between %.1f and %.1f", prefix, minSpeechRate, maxSpeechRate))
		}
	}

	if s.Settings != nil {
		if s.Settings.SpeechRate != 0 && (s.Settings.SpeechRate < minSpeechRate || s.Settings.SpeechRate > maxSpeechRate) {
			errs = append(errs, "settings: speech_rate out of range")
		}
		if s.Settings.InitialSilenceMs < 0 || s.Settings.InitialSilenceMs > 2000 {
			errs = append(errs, "settings: initial_silence_ms out of range")
		}
		if s.Settings.DefaultPauseMs < 0 || s.Settings.DefaultPauseMs > maxPauseMs {
			errs = append(errs, "settings: default_pause_ms out of range")
		}
	}

	return errs
}

// PauseAfter resolves the effective pause for a line using the script-wide
// default, then the application default.
func (s *Script) PauseAfter(line Line, appDefaultMs int) int {
	if line.PauseAfterMs >= 0 {
		return line.PauseAfterMs
	}
	if s.Settings != nil && s.Settings.DefaultPauseMs > 0 {
		return s.Settings.DefaultPauseMs
	}
	return appDefaultMs
}

// InitialSilence resolves the leading silence for the lesson.
func (s *Script) InitialSilence(appDefaultMs int) int {
	if s.Settings != nil && s.Settings.InitialSilenceMs > 0 {
		return s.Settings.InitialSilenceMs
	}
	return appDefaultMs
}

// TextsByID maps line ids to their source text.
func (s *Script) TextsByID() map[int]string {
	texts := make(map[int]string, len(s.Lines))
	for _, line := range s.Lines {
		texts[line.ID] = line.Text
	}
	return texts
}
