package audio

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

const (
	pitchFrameSec = 0.064
	pitchHopSec   = 0.016

	// voicingThreshold is the minimum normalized autocorrelation peak for a
	// frame to count as voiced.
	voicingThreshold = 0.30

	// analysisSilenceRMS marks frames too quiet to analyze (about -60 dBFS).
	analysisSilenceRMS = 1e-3
)

// PitchTrack estimates the fundamental frequency per frame using normalized
// autocorrelation with parabolic peak refinement. Unvoiced or silent frames
// report 0. minHz and maxHz bound the candidate lag range.
func PitchTrack(samples []float64, sampleRate int, minHz, maxHz float64) []float64 {
	if sampleRate <= 0 || minHz <= 0 || maxHz <= minHz {
		return nil
	}
	frame := int(float64(sampleRate) * pitchFrameSec)
	hop := int(float64(sampleRate) * pitchHopSec)
	if frame < 2 || hop < 1 || len(samples) < frame {
		return nil
	}

	minLag := int(float64(sampleRate) / maxHz)
	maxLag := int(float64(sampleRate) / minHz)
	if minLag < 2 {
		minLag = 2
	}
	if maxLag > frame-2 {
		maxLag = frame - 2
	}
	if maxLag <= minLag {
		return nil
	}

	var track []float64
	window := make([]float64, frame)
	corr := make([]float64, maxLag-minLag+3)
	for start := 0; start+frame <= len(samples); start += hop {
		copy(window, samples[start:start+frame])
		track = append(track, framePitch(window, sampleRate, minLag, maxLag, corr))
	}
	return track
}

func framePitch(window []float64, sampleRate, minLag, maxLag int, corr []float64) float64 {
	var mean float64
	for _, s := range window {
		mean += s
	}
	mean /= float64(len(window))

	var energy float64
	for i := range window {
		window[i] -= mean
		energy += window[i] * window[i]
	}
	if energy == 0 || math.Sqrt(energy/float64(len(window))) < analysisSilenceRMS {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag - 1; lag <= maxLag+1 && lag < len(window); lag++ {
		var sum float64
		for i := 0; i+lag < len(window); i++ {
			sum += window[i] * window[i+lag]
		}
		corr[lag-minLag+1] = sum / energy
		if lag >= minLag && lag <= maxLag && corr[lag-minLag+1] > bestCorr {
			bestLag = lag
			bestCorr = corr[lag-minLag+1]
		}
	}
	if bestLag == 0 || bestCorr < voicingThreshold {
		return 0
	}

	// Parabolic interpolation around the peak sharpens the lag estimate to
	// sub-sample resolution.
	refined := float64(bestLag)
	idx := bestLag - minLag + 1
	if idx > 0 && idx < len(corr)-1 {
		prev, cur, next := corr[idx-1], corr[idx], corr[idx+1]
		denom := prev - 2*cur + next
		if denom != 0 {
			delta := 0.5 * (prev - next) / denom
			if delta > -1 && delta < 1 {
				refined += delta
			}
		}
	}
	return float64(sampleRate) / refined
}

// MedianPitch returns the median of the voiced (nonzero) values in a pitch
// track, or 0 when no frame is voiced.
func MedianPitch(track []float64) float64 {
	voiced := make([]float64, 0, len(track))
	for _, p := range track {
		if p > 0 {
			voiced = append(voiced, p)
		}
	}
	return median(voiced)
}

// VoicedRatio returns the fraction of frames in the track that carry a pitch.
func VoicedRatio(track []float64) float64 {
	if len(track) == 0 {
		return 0
	}
	var voiced int
	for _, p := range track {
		if p > 0 {
			voiced++
		}
	}
	return float64(voiced) / float64(len(track))
}

// SpectralCentroid returns the median per-frame spectral centroid in Hz.
// Frames below the analysis silence floor are skipped; a fully silent clip
// reports 0.
func SpectralCentroid(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	frame := int(float64(sampleRate) * pitchFrameSec)
	hop := frame / 2
	if frame < 2 || len(samples) < frame {
		return 0
	}

	fft := fourier.NewFFT(frame)
	window := make([]float64, frame)
	coeffs := make([]complex128, frame/2+1)
	var centroids []float64
	for start := 0; start+frame <= len(samples); start += hop {
		if RMS(samples[start:start+frame]) < analysisSilenceRMS {
			continue
		}
		for i := range window {
			hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(frame-1))
			window[i] = samples[start+i] * hann
		}
		coeffs = fft.Coefficients(coeffs, window)

		var weighted, total float64
		for i, c := range coeffs {
			mag := cmplxAbs(c)
			hz := fft.Freq(i) * float64(sampleRate)
			weighted += hz * mag
			total += mag
		}
		if total > 0 {
			centroids = append(centroids, weighted/total)
		}
	}
	return median(centroids)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
