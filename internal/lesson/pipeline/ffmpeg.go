package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// exportMP3 converts a WAV artifact to MP3 via ffmpeg. MP3 encoding has no
// Go-native path in this stack; everything else ships WAV.
func exportMP3(ctx context.Context, wavPath, mp3Path string, bitrateKbps int) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		mp3Path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, lastLine(out))
	}
	return nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
