package audio

import "math"

// silenceFloorDBFS is reported for digitally silent material instead of -Inf.
const silenceFloorDBFS = -96.0

// RMS returns the root mean square of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSdBFS returns the RMS level in decibels relative to full scale.
func RMSdBFS(samples []float64) float64 {
	return AmplitudeToDB(RMS(samples))
}

// PeakDBFS returns the peak absolute sample level in dBFS.
func PeakDBFS(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return AmplitudeToDB(peak)
}

// AmplitudeToDB converts a linear [0,1] amplitude to dBFS, flooring at -96.
func AmplitudeToDB(amplitude float64) float64 {
	if amplitude <= 0 {
		return silenceFloorDBFS
	}
	db := 20 * math.Log10(amplitude)
	if db < silenceFloorDBFS {
		return silenceFloorDBFS
	}
	return db
}

// DBToAmplitude converts a dBFS value to a linear amplitude factor.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// NormalizeRMS scales the clip so its RMS level matches targetDBFS. The gain
// is reduced when it would push the peak past full scale, so quiet material
// with sharp transients is brought up as far as clipping allows.
func (c *Clip) NormalizeRMS(targetDBFS float64) {
	if c == nil || len(c.Samples) == 0 {
		return
	}
	current := RMS(c.Samples)
	if current <= 0 {
		return
	}
	gain := DBToAmplitude(targetDBFS) / current

	var peak float64
	for _, s := range c.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak*gain > 1 {
		gain = 1 / peak
	}
	for i := range c.Samples {
		c.Samples[i] *= gain
	}
}

// FrameRMS computes RMS levels over a sliding window. winSec is the window
// length and hopSec the stride between successive frames. A trailing partial
// window is included so short tails still contribute a level estimate.
func FrameRMS(samples []float64, sampleRate int, winSec, hopSec float64) []float64 {
	if sampleRate <= 0 || winSec <= 0 || hopSec <= 0 {
		return nil
	}
	win := int(float64(sampleRate) * winSec)
	hop := int(float64(sampleRate) * hopSec)
	if win < 1 {
		win = 1
	}
	if hop < 1 {
		hop = 1
	}
	if len(samples) == 0 {
		return nil
	}

	var frames []float64
	for start := 0; start < len(samples); start += hop {
		end := start + win
		if end > len(samples) {
			end = len(samples)
		}
		frames = append(frames, RMS(samples[start:end]))
		if end == len(samples) {
			break
		}
	}
	return frames
}
