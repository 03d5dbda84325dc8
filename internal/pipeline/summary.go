package pipeline

import "time"

// SegmentReport captures the per-segment outcome recorded in the job
// summary.
type SegmentReport struct {
	SegmentID    int     `json:"segment_id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Gender       Gender  `json:"gender,omitempty"`
	PitchHz      float64 `json:"pitch_hz,omitempty"`
	VoiceType    string  `json:"voice_type,omitempty"`
	VoiceID      string  `json:"voice_id,omitempty"`
	AppliedRate  float64 `json:"applied_rate,omitempty"`
	ShiftSec     float64 `json:"shift_sec,omitempty"`
	DriftWarning bool    `json:"drift_warning,omitempty"`
	Failed       bool    `json:"failed,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Summary is the per-job report persisted as summary.json and rendered by
// the CLI when a job finishes.
type Summary struct {
	JobID          int64           `json:"job_id"`
	SourcePath     string          `json:"source_path"`
	OutputPath     string          `json:"output_path,omitempty"`
	SubtitlePath   string          `json:"subtitle_path,omitempty"`
	SourceLanguage string          `json:"source_language,omitempty"`
	TargetLanguage string          `json:"target_language"`
	SegmentsTotal  int             `json:"segments_total"`
	SpeechSegments int             `json:"speech_segments"`
	FailedSegments []int           `json:"failed_segments,omitempty"`
	DriftWarnings  []int           `json:"drift_warnings,omitempty"`
	TotalDriftSec  float64         `json:"total_drift_sec"`
	Segments       []SegmentReport `json:"segments,omitempty"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// HasWarnings reports whether the summary carries anything an operator
// should look at on an otherwise completed job.
func (s Summary) HasWarnings() bool {
	return len(s.FailedSegments) > 0 || len(s.DriftWarnings) > 0
}
