package synth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ESpeakEngine synthesizes offline through eSpeak/eSpeak-NG, writing WAV to
// a temp file ("-w"). It is the stock fallback when the primary cloud engine
// keeps failing on a line.
type ESpeakEngine struct {
	path string
}

func newESpeakEngine() (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	engine := &ESpeakEngine{path: espeakPath}
	if err := engine.testInstallation(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}
	return engine, nil
}

func findESpeakExecutable() (string, error) {
	// Try different possible eSpeak executables
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) testInstallation() error {
	return exec.Command(e.path, "--version").Run()
}

func (e *ESpeakEngine) Name() string { return EngineTypeESpeak.String() }

func (e *ESpeakEngine) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	out, err := os.CreateTemp("", "lessonforge-espeak-*.wav")
	if err != nil {
		return nil, fmt.Errorf("espeak temp file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := []string{"-w", outPath}

	// eSpeak speed is words per minute, default 175
	wpm := int(175 * req.Speed * emotionSpeed(req.Emotion))
	if wpm > 0 {
		args = append(args, "-s", strconv.Itoa(wpm))
	}
	if v := req.Voice.EngineVoice; v != "" && v != "default" {
		args = append(args, "-v", v)
	}
	args = append(args, "--stdin")

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdin = strings.NewReader(req.Text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("espeak failed: %v: %s", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read espeak output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("espeak produced no audio")
	}
	return data, nil
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("list espeak voices: %w", err)
	}

	var voices []string
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		if i == 0 { // header row
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}
	return voices, nil
}
