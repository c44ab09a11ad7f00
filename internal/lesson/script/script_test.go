package script

import (
	"strings"
	"testing"
)

const sampleScript = `{
  "lesson_id": "lesson-001",
  "title": "Greetings",
  "level": "beginner",
  "lines": [
    {"id": 1, "speaker": "alice", "text": "Hello there.", "emotion": "friendly", "pause_after_ms": 500},
    {"id": 2, "speaker": "bob", "text": "Good morning.", "pause_after_ms": 0},
    {"id": 3, "speaker": "alice", "text": "How are you?", "speech_rate": 0.9}
  ],
  "settings": {"speech_rate": 1.0, "initial_silence_ms": 300, "default_pause_ms": 400}
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.LessonID != "lesson-001" || s.Title != "Greetings" || s.Level != "beginner" {
		t.Errorf("header = %q/%q/%q", s.LessonID, s.Title, s.Level)
	}
	if len(s.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(s.Lines))
	}

	if s.Lines[0].Emotion != EmotionFriendly {
		t.Errorf("line 1 emotion = %q, want friendly", s.Lines[0].Emotion)
	}
	if s.Lines[1].Emotion != EmotionNeutral {
		t.Errorf("line 2 emotion = %q, want neutral default", s.Lines[1].Emotion)
	}

	// Explicit zero pause and absent pause must be distinguishable.
	if s.Lines[1].PauseAfterMs != 0 {
		t.Errorf("line 2 pause = %d, want explicit 0", s.Lines[1].PauseAfterMs)
	}
	if s.Lines[2].PauseAfterMs != -1 {
		t.Errorf("line 3 pause = %d, want -1 for unset", s.Lines[2].PauseAfterMs)
	}

	if s.Settings == nil || s.Settings.DefaultPauseMs != 400 {
		t.Errorf("settings = %+v, want default_pause_ms 400", s.Settings)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("Parse of non-JSON should fail")
	}
	if _, err := Parse([]byte(`{"lines": [{"id": "one"}]}`)); err == nil {
		t.Error("Parse with a string id should fail")
	}
}

func TestValidateOK(t *testing.T) {
	s, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}
	if errs := s.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := &Script{
		Lines: []Line{
			{ID: 0, Speaker: "", Text: "", Emotion: "angry", PauseAfterMs: 6000},
			{ID: 1, Speaker: "bob", Text: "ok", Emotion: EmotionNeutral, PauseAfterMs: -1, SpeechRate: 2.0},
			{ID: 1, Speaker: "bob", Text: "dup", Emotion: EmotionNeutral, PauseAfterMs: -1},
		},
	}

	errs := s.Validate()

	wantSubstrings := []string{
		"lesson_id is required",
		"title is required",
		"id must be a positive integer",
		"speaker is required",
		"text is required",
		"invalid emotion",
		"pause_after_ms too long",
		"speech_rate must be between",
		"duplicate line id",
	}
	for _, want := range wantSubstrings {
		found := false
		for _, e := range errs {
			if strings.Contains(e, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Validate() missing %q; got %v", want, errs)
		}
	}
}

func TestValidateEmptyScript(t *testing.T) {
	s := &Script{LessonID: "x", Title: "y"}
	errs := s.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0], "at least one line") {
		t.Errorf("Validate() = %v, want single at-least-one-line error", errs)
	}
}

func TestValidateTextLength(t *testing.T) {
	s := &Script{
		LessonID: "x",
		Title:    "y",
		Lines: []Line{
			{ID: 1, Speaker: "a", Text: strings.Repeat("a", maxTextLen), Emotion: EmotionNeutral, PauseAfterMs: -1},
			{ID: 2, Speaker: "a", Text: strings.Repeat("a", maxTextLen+1), Emotion: EmotionNeutral, PauseAfterMs: -1},
		},
	}
	errs := s.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0], "too long") {
		t.Errorf("Validate() = %v, want one too-long error for the second line", errs)
	}
}

func TestPauseAfter(t *testing.T) {
	withSettings := &Script{Settings: &Settings{DefaultPauseMs: 250}}
	bare := &Script{}

	tests := []struct {
		name string
		s    *Script
		line Line
		want int
	}{
		{"explicit wins", withSettings, Line{PauseAfterMs: 500}, 500},
		{"explicit zero wins", withSettings, Line{PauseAfterMs: 0}, 0},
		{"script default", withSettings, Line{PauseAfterMs: -1}, 250},
		{"app default", bare, Line{PauseAfterMs: -1}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.PauseAfter(tt.line, 400); got != tt.want {
				t.Errorf("PauseAfter() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInitialSilence(t *testing.T) {
	withSettings := &Script{Settings: &Settings{InitialSilenceMs: 150}}
	if got := withSettings.InitialSilence(300); got != 150 {
		t.Errorf("InitialSilence() = %d, want script setting 150", got)
	}
	bare := &Script{}
	if got := bare.InitialSilence(300); got != 300 {
		t.Errorf("InitialSilence() = %d, want app default 300", got)
	}
}

func TestTextsByID(t *testing.T) {
	s := &Script{Lines: []Line{
		{ID: 1, Text: "one"},
		{ID: 2, Text: "two"},
	}}
	texts := s.TextsByID()
	if texts[1] != "one" || texts[2] != "two" {
		t.Errorf("TextsByID() = %v", texts)
	}
}
