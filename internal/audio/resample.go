package audio

// Resample converts the clip to targetRate using linear interpolation and
// returns a new clip. Synthesized clips arrive at whatever rate the engine
// produced; the assembler brings them onto the output rate before placement.
func Resample(c *Clip, targetRate int) *Clip {
	if c == nil {
		return nil
	}
	if targetRate <= 0 || c.SampleRate <= 0 || c.SampleRate == targetRate || len(c.Samples) == 0 {
		out := c.Clone()
		if targetRate > 0 {
			out.SampleRate = targetRate
		}
		return out
	}

	ratio := float64(c.SampleRate) / float64(targetRate)
	frames := int(float64(len(c.Samples)) / ratio)
	if frames < 1 {
		frames = 1
	}

	out := make([]float64, frames)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(c.Samples)-1 {
			out[i] = c.Samples[len(c.Samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = c.Samples[idx]*(1-frac) + c.Samples[idx+1]*frac
	}
	return &Clip{Samples: out, SampleRate: targetRate}
}
