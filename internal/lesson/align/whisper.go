package align

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// WhisperAligner shells out to a whisper word-timestamp helper. The helper
// contract is: invoked as `<command> --audio <wav-path>`, it prints JSON
//
//	{"words": [{"word": "...", "start": 1.23, "end": 1.81}, ...]}
//
// with seconds as floats, words in stream order.
type WhisperAligner struct {
	Command string
}

func NewWhisperAligner(command string) *WhisperAligner {
	return &WhisperAligner{Command: command}
}

type whisperOut struct {
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

func (w *WhisperAligner) Align(ctx context.Context, wavData []byte, sampleRate int) ([]Word, error) {
	if w.Command == "" {
		return nil, fmt.Errorf("no aligner command configured")
	}
	if _, err := exec.LookPath(w.Command); err != nil {
		return nil, fmt.Errorf("aligner command not found: %w", err)
	}

	tmp, err := os.CreateTemp("", "lessonforge-align-*.wav")
	if err != nil {
		return nil, fmt.Errorf("aligner temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(wavData); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write aligner input: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, w.Command, "--audio", tmpPath)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("aligner failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("run aligner: %w", err)
	}

	var parsed whisperOut
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse aligner output: %w", err)
	}

	words := make([]Word, 0, len(parsed.Words))
	for _, pw := range parsed.Words {
		words = append(words, Word{
			Text:    strings.TrimSpace(pw.Word),
			StartMs: int(pw.Start * 1000),
			EndMs:   int(pw.End * 1000),
		})
	}
	logrus.WithField("words", len(words)).Debug("aligner produced word timestamps")
	return words, nil
}
