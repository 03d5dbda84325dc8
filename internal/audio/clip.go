package audio

import "time"

// Clip holds mono PCM samples normalized to [-1, 1].
type Clip struct {
	Samples    []float64
	SampleRate int
}

// NewSilence returns a clip of digital silence at the given rate.
func NewSilence(d time.Duration, sampleRate int) *Clip {
	frames := int(d.Seconds() * float64(sampleRate))
	if frames < 0 {
		frames = 0
	}
	return &Clip{
		Samples:    make([]float64, frames),
		SampleRate: sampleRate,
	}
}

// Frames returns the number of samples in the clip.
func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	return len(c.Samples)
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(c.Samples)) / float64(c.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Clone returns a deep copy of the clip.
func (c *Clip) Clone() *Clip {
	if c == nil {
		return nil
	}
	samples := make([]float64, len(c.Samples))
	copy(samples, c.Samples)
	return &Clip{Samples: samples, SampleRate: c.SampleRate}
}

// Slice returns a copy of the clip between start and end, clamped to the
// clip bounds.
func (c *Clip) Slice(start, end time.Duration) *Clip {
	if c == nil || c.SampleRate <= 0 {
		return &Clip{SampleRate: 0}
	}
	startFrame := int(start.Seconds() * float64(c.SampleRate))
	endFrame := int(end.Seconds() * float64(c.SampleRate))
	if startFrame < 0 {
		startFrame = 0
	}
	if endFrame > len(c.Samples) {
		endFrame = len(c.Samples)
	}
	if startFrame >= endFrame {
		return &Clip{SampleRate: c.SampleRate}
	}
	samples := make([]float64, endFrame-startFrame)
	copy(samples, c.Samples[startFrame:endFrame])
	return &Clip{Samples: samples, SampleRate: c.SampleRate}
}

// Append concatenates another clip's samples. The caller is responsible for
// matching sample rates; mixed-rate appends should go through Resample first.
func (c *Clip) Append(other *Clip) {
	if other == nil || len(other.Samples) == 0 {
		return
	}
	c.Samples = append(c.Samples, other.Samples...)
}

// AppendSilence extends the clip with the given span of digital silence.
func (c *Clip) AppendSilence(d time.Duration) {
	frames := int(d.Seconds() * float64(c.SampleRate))
	if frames <= 0 {
		return
	}
	c.Samples = append(c.Samples, make([]float64, frames)...)
}

// Gain scales every sample by factor, clamping to [-1, 1].
func (c *Clip) Gain(factor float64) {
	for i, sample := range c.Samples {
		scaled := sample * factor
		if scaled > 1 {
			scaled = 1
		} else if scaled < -1 {
			scaled = -1
		}
		c.Samples[i] = scaled
	}
}
