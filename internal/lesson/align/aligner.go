package align

import "context"

// Word is one recognized word with its position in the stream.
type Word struct {
	Text    string `json:"word"`
	StartMs int    `json:"start_ms"`
	EndMs   int    `json:"end_ms"`
}

// Aligner derives word-level timestamps for an assembled lesson stream. It
// returns one flat ordered word list for the whole stream; partitioning the
// list back into lines is the reconciler's job.
type Aligner interface {
	Align(ctx context.Context, wavData []byte, sampleRate int) ([]Word, error)
}
