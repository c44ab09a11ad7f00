package audio

import "github.com/faiface/beep"

// trimThreshold is the absolute sample amplitude (about -40 dBFS) below
// which leading and trailing audio counts as synthesis silence.
const trimThreshold = 0.01

// Clip is a mono PCM buffer. All timing math in the pipeline runs on clip
// sample counts, so clips must share one sample rate before assembly.
type Clip struct {
	Samples []float64
	Rate    int
}

// Silence returns a clip of near-exact duration. Sample count is
// ms*rate/1000, truncating; at the standard 24 kHz rate every whole
// millisecond is exact.
func Silence(ms, rate int) Clip {
	n := ms * rate / 1000
	if n < 0 {
		n = 0
	}
	return Clip{Samples: make([]float64, n), Rate: rate}
}

// DurationMs reports the clip length in whole milliseconds.
func (c Clip) DurationMs() int {
	if c.Rate == 0 {
		return 0
	}
	return len(c.Samples) * 1000 / c.Rate
}

func (c Clip) Empty() bool { return len(c.Samples) == 0 }

// Append concatenates two clips of the same rate.
func (c Clip) Append(o Clip) Clip {
	out := Clip{Rate: c.Rate}
	if out.Rate == 0 {
		out.Rate = o.Rate
	}
	out.Samples = make([]float64, 0, len(c.Samples)+len(o.Samples))
	out.Samples = append(out.Samples, c.Samples...)
	out.Samples = append(out.Samples, o.Samples...)
	return out
}

// TrimEdges drops contiguous near-silence from the very start and end of the
// clip. Internal silence is never touched.
func (c Clip) TrimEdges() Clip {
	first := -1
	last := -1
	for i, s := range c.Samples {
		if s >= trimThreshold || s <= -trimThreshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return Clip{Rate: c.Rate}
	}
	trimmed := make([]float64, last+1-first)
	copy(trimmed, c.Samples[first:last+1])
	return Clip{Samples: trimmed, Rate: c.Rate}
}

// Streamer adapts the clip to beep's stereo sample stream.
func (c Clip) Streamer() beep.Streamer {
	return &clipStreamer{clip: c}
}

// Format reports the beep format matching the clip.
func (c Clip) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(c.Rate),
		NumChannels: 1,
		Precision:   2,
	}
}

type clipStreamer struct {
	clip Clip
	pos  int
}

func (s *clipStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.clip.Samples) {
		return 0, false
	}
	n := 0
	for i := range samples {
		if s.pos >= len(s.clip.Samples) {
			break
		}
		v := s.clip.Samples[s.pos]
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *clipStreamer) Err() error { return nil }

// Drain collects a streamer into a mono clip at the given rate, averaging
// channels.
func Drain(s beep.Streamer, rate int) Clip {
	var out []float64
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	return Clip{Samples: out, Rate: rate}
}
