package audio

import (
	"math"

	"github.com/faiface/beep/effects"
)

// DbFS reports the clip's RMS level relative to full scale. A digitally
// silent clip reports -inf.
func (c Clip) DbFS() float64 {
	if len(c.Samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range c.Samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(c.Samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Normalize applies one uniform gain so the clip's integrated level matches
// targetDb. Sample count is never altered, so segment timing computed before
// normalization stays valid. Silent clips pass through unchanged.
func Normalize(c Clip, targetDb float64) Clip {
	current := c.DbFS()
	if math.IsInf(current, -1) {
		return c
	}
	factor := math.Pow(10, (targetDb-current)/20)
	gained := effects.Gain{Streamer: c.Streamer(), Gain: factor - 1}
	out := Drain(&gained, c.Rate)
	for i, s := range out.Samples {
		if s > 1 {
			out.Samples[i] = 1
		} else if s < -1 {
			out.Samples[i] = -1
		}
	}
	return out
}
