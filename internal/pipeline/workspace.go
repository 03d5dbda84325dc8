package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace resolves artifact paths inside one job's working directory.
// Every stage reads its inputs and writes its outputs through these names so
// a resumed job finds exactly what its predecessor left.
type Workspace struct {
	Root string
}

// NewWorkspace wraps a per-job directory.
func NewWorkspace(root string) Workspace {
	return Workspace{Root: root}
}

// Ensure creates the workspace directory tree.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.Root, w.ClipsDir(), w.AlignedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace directory: %w", err)
		}
	}
	return nil
}

// SourceAudioPath is the mono analysis-rate WAV extracted from the input.
func (w Workspace) SourceAudioPath() string { return filepath.Join(w.Root, "source.wav") }

// SegmentsPath holds the segmenter output.
func (w Workspace) SegmentsPath() string { return filepath.Join(w.Root, "segments.json") }

// ProfilesPath holds the speaker profiler output.
func (w Workspace) ProfilesPath() string { return filepath.Join(w.Root, "profiles.json") }

// TranscriptsPath holds per-segment transcriptions.
func (w Workspace) TranscriptsPath() string { return filepath.Join(w.Root, "transcripts.json") }

// TranslationsPath holds per-segment translations.
func (w Workspace) TranslationsPath() string { return filepath.Join(w.Root, "translations.json") }

// ClipsPath holds the synthesized clip manifest.
func (w Workspace) ClipsPath() string { return filepath.Join(w.Root, "clips.json") }

// ClipsDir contains the synthesized per-segment waveforms.
func (w Workspace) ClipsDir() string { return filepath.Join(w.Root, "clips") }

// ClipPath is the synthesized waveform for one segment.
func (w Workspace) ClipPath(segmentID int) string {
	return filepath.Join(w.ClipsDir(), fmt.Sprintf("seg-%04d.wav", segmentID))
}

// AlignedDir contains the rate-adjusted per-segment waveforms.
func (w Workspace) AlignedDir() string { return filepath.Join(w.Root, "aligned") }

// AlignedClipPath is the rate-adjusted waveform for one segment.
func (w Workspace) AlignedClipPath(segmentID int) string {
	return filepath.Join(w.AlignedDir(), fmt.Sprintf("seg-%04d.wav", segmentID))
}

// AlignedPath holds the aligner's placement manifest.
func (w Workspace) AlignedPath() string { return filepath.Join(w.Root, "aligned.json") }

// DubbedTrackPath is the assembled dub track.
func (w Workspace) DubbedTrackPath() string { return filepath.Join(w.Root, "dubbed.wav") }

// SubtitlePath is the generated subtitle file.
func (w Workspace) SubtitlePath() string { return filepath.Join(w.Root, "subtitles.srt") }

// SummaryPath is the job summary report.
func (w Workspace) SummaryPath() string { return filepath.Join(w.Root, "summary.json") }
