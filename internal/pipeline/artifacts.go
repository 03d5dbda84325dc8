package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON persists an artifact atomically: marshal, write a sibling temp
// file, rename over the target. A crash mid-write leaves either the old
// artifact or none at all.
func WriteJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// ReadJSON loads an artifact into out.
func ReadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ArtifactExists reports whether an artifact file is present and non-empty.
func ArtifactExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// ErrArtifactMissing marks a load against an artifact no prior stage wrote.
var ErrArtifactMissing = errors.New("artifact missing")

func loadArtifact(path string, out any) error {
	if !ArtifactExists(path) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(path))
	}
	return ReadJSON(path, out)
}

// SaveSegments writes the segmenter output.
func SaveSegments(w Workspace, segments []Segment) error {
	return WriteJSON(w.SegmentsPath(), segments)
}

// LoadSegments reads the segmenter output.
func LoadSegments(w Workspace) ([]Segment, error) {
	var segments []Segment
	if err := loadArtifact(w.SegmentsPath(), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// SaveProfiles writes the speaker profiles.
func SaveProfiles(w Workspace, profiles []Profile) error {
	return WriteJSON(w.ProfilesPath(), profiles)
}

// LoadProfiles reads the speaker profiles.
func LoadProfiles(w Workspace) ([]Profile, error) {
	var profiles []Profile
	if err := loadArtifact(w.ProfilesPath(), &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SaveTranscripts writes per-segment transcriptions.
func SaveTranscripts(w Workspace, transcripts []Transcript) error {
	return WriteJSON(w.TranscriptsPath(), transcripts)
}

// LoadTranscripts reads per-segment transcriptions.
func LoadTranscripts(w Workspace) ([]Transcript, error) {
	var transcripts []Transcript
	if err := loadArtifact(w.TranscriptsPath(), &transcripts); err != nil {
		return nil, err
	}
	return transcripts, nil
}

// SaveTranslations writes per-segment translations.
func SaveTranslations(w Workspace, translations []Translation) error {
	return WriteJSON(w.TranslationsPath(), translations)
}

// LoadTranslations reads per-segment translations.
func LoadTranslations(w Workspace) ([]Translation, error) {
	var translations []Translation
	if err := loadArtifact(w.TranslationsPath(), &translations); err != nil {
		return nil, err
	}
	return translations, nil
}

// SaveClips writes the synthesized clip manifest.
func SaveClips(w Workspace, clips []Clip) error {
	return WriteJSON(w.ClipsPath(), clips)
}

// LoadClips reads the synthesized clip manifest.
func LoadClips(w Workspace) ([]Clip, error) {
	var clips []Clip
	if err := loadArtifact(w.ClipsPath(), &clips); err != nil {
		return nil, err
	}
	return clips, nil
}

// SaveAligned writes the aligner placement manifest.
func SaveAligned(w Workspace, aligned []AlignedClip) error {
	return WriteJSON(w.AlignedPath(), aligned)
}

// LoadAligned reads the aligner placement manifest.
func LoadAligned(w Workspace) ([]AlignedClip, error) {
	var aligned []AlignedClip
	if err := loadArtifact(w.AlignedPath(), &aligned); err != nil {
		return nil, err
	}
	return aligned, nil
}

// SaveSummary writes the job summary.
func SaveSummary(w Workspace, summary Summary) error {
	return WriteJSON(w.SummaryPath(), summary)
}

// LoadSummary reads the job summary.
func LoadSummary(w Workspace) (Summary, error) {
	var summary Summary
	if err := loadArtifact(w.SummaryPath(), &summary); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
