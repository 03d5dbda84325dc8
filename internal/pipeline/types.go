package pipeline

// Segment is one contiguous slice of the source timeline. Segments are
// ordered by start, non-overlapping, and together cover the full input
// duration; non-speech segments carry the silence the assembler lays back
// down between clips.
type Segment struct {
	ID       int     `json:"id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	IsSpeech bool    `json:"is_speech"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Word is a single transcribed token with its source-audio timing.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the recognized text for one speech segment.
type Transcript struct {
	SegmentID  int     `json:"segment_id"`
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Gender classifies a speaker for voice selection.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Profile summarizes the speaker heard in one speech segment.
type Profile struct {
	SegmentID   int     `json:"segment_id"`
	Gender      Gender  `json:"gender"`
	PitchHz     float64 `json:"pitch_hz"`
	Confidence  float64 `json:"confidence"`
	VoiceType   string  `json:"voice_type,omitempty"`
	EnergyDBFS  float64 `json:"energy_dbfs,omitempty"`
	CentroidHz  float64 `json:"centroid_hz,omitempty"`
	VoicedRatio float64 `json:"voiced_ratio,omitempty"`
}

// Translation is the target-language text for one speech segment.
type Translation struct {
	SegmentID      int    `json:"segment_id"`
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language"`
}

// Clip records a synthesized waveform for one speech segment.
type Clip struct {
	SegmentID  int     `json:"segment_id"`
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	VoiceID    string  `json:"voice_id"`
	Failed     bool    `json:"failed,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// AlignedClip places a rate-adjusted clip on the output timeline. The
// sequence is strictly ordered: each FinalEnd never exceeds the next clip's
// FinalStart.
type AlignedClip struct {
	SegmentID    int     `json:"segment_id"`
	FinalStart   float64 `json:"final_start"`
	FinalEnd     float64 `json:"final_end"`
	AppliedRate  float64 `json:"applied_rate"`
	Path         string  `json:"path"`
	ShiftSec     float64 `json:"shift_sec,omitempty"`
	DriftWarning bool    `json:"drift_warning,omitempty"`
}

// Duration returns the aligned clip length in seconds.
func (a AlignedClip) Duration() float64 {
	return a.FinalEnd - a.FinalStart
}
