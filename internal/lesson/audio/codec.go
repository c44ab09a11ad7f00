package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Decode sniffs WAV vs MP3 from magic bytes, decodes, downmixes to mono and
// resamples to targetRate when the source rate differs.
func Decode(data []byte, targetRate int) (Clip, error) {
	if len(data) < 4 {
		return Clip{}, fmt.Errorf("decode audio: %d bytes is not a valid clip", len(data))
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	if isWAV(data) {
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	} else {
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	}
	if err != nil {
		return Clip{}, fmt.Errorf("decode audio: %w", err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if int(format.SampleRate) != targetRate {
		src = beep.Resample(4, format.SampleRate, beep.SampleRate(targetRate), streamer)
	}
	clip := Drain(src, targetRate)
	if err := streamer.Err(); err != nil {
		return Clip{}, fmt.Errorf("decode audio: %w", err)
	}
	return clip, nil
}

func isWAV(data []byte) bool {
	return bytes.HasPrefix(data, []byte("RIFF"))
}

// EncodeWAV writes the clip as a 16-bit PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, c Clip) error {
	if err := wav.Encode(w, c.Streamer(), c.Format()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// WAVBytes encodes the clip into an in-memory WAV buffer. wav.Encode needs
// seeking to back-patch the header, hence the local WriteSeeker.
func WAVBytes(c Clip) ([]byte, error) {
	var buf seekBuffer
	if err := EncodeWAV(&buf, c); err != nil {
		return nil, err
	}
	return buf.data, nil
}

type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("seek buffer: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek buffer: negative position")
	}
	b.pos = int(next)
	return next, nil
}
