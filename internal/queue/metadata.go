package queue

import (
	"encoding/json"
	"strings"
)

// Metadata captures source probe details carried on a job. Stages populate it
// during extraction and read it later without re-probing the source.
type Metadata struct {
	Title            string  `json:"title"`
	DurationSeconds  float64 `json:"duration_seconds"`
	VideoCodec       string  `json:"video_codec,omitempty"`
	AudioCodec       string  `json:"audio_codec,omitempty"`
	SampleRate       int     `json:"sample_rate,omitempty"`
	Channels         int     `json:"channels,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	SpeakerGender    string  `json:"speaker_gender,omitempty"`
	VoiceType        string  `json:"voice_type,omitempty"`
	Voice            string  `json:"voice,omitempty"`
}

// MetadataFromJSON builds metadata from stored JSON, falling back to basic inference.
func MetadataFromJSON(data, fallbackTitle string) Metadata {
	meta := Metadata{Title: fallbackTitle}
	_ = json.Unmarshal([]byte(data), &meta)
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = fallbackTitle
	}
	return meta
}

// Encode serializes metadata for storage on the job row.
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DisplayTitle returns the title or a placeholder for presentation.
func (m Metadata) DisplayTitle() string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return "Untitled"
	}
	return title
}
