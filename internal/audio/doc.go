// Package audio provides mono PCM clips with WAV file IO plus the level,
// pitch, and spectral measurements the segmenter, speaker profiler, and
// track assembler run on them.
package audio
