package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkingDir string `toml:"working_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Audio contains shared sample format settings. The analysis rate feeds
// segmentation and speaker profiling; the output rate is what synthesized
// clips are resampled to before assembly.
type Audio struct {
	SampleRate       int `toml:"sample_rate"`
	OutputSampleRate int `toml:"output_sample_rate"`
	Channels         int `toml:"channels"`
}

// Segmentation contains configuration for splitting source audio into
// speech segments.
type Segmentation struct {
	ChunkDurationSec   float64 `toml:"chunk_duration_sec"`
	OverlapSec         float64 `toml:"overlap_sec"`
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	MinSilenceSec      float64 `toml:"min_silence_sec"`
	KeepSilenceSec     float64 `toml:"keep_silence_sec"`
	MinSegmentSec      float64 `toml:"min_segment_sec"`
	FallbackChunking   bool    `toml:"fallback_chunking"`
}

// VAD selects and tunes the voice activity detection backend.
type VAD struct {
	Engine       string  `toml:"engine"`
	Threshold    float64 `toml:"threshold"`
	MinSpeechMs  int     `toml:"min_speech_ms"`
	MinSilenceMs int     `toml:"min_silence_ms"`
	ModelPath    string  `toml:"model_path"`
}

// PitchRange bounds a speaker pitch class in Hz with a base used for
// relative pitch adjustments.
type PitchRange struct {
	Min  float64 `toml:"min"`
	Max  float64 `toml:"max"`
	Base float64 `toml:"base"`
}

// Speaker contains configuration for voice profiling.
type Speaker struct {
	MalePitch       PitchRange `toml:"male_pitch"`
	FemalePitch     PitchRange `toml:"female_pitch"`
	MinConfidence   float64    `toml:"min_confidence"`
	GenderThreshold float64    `toml:"gender_threshold"`
	Features        []string   `toml:"features"`
}

// Transcription contains configuration for speech-to-text.
type Transcription struct {
	Engine            string `toml:"engine"`
	Model             string `toml:"model"`
	Language          string `toml:"language"`
	CUDA              bool   `toml:"cuda"`
	AttemptTimeoutSec int    `toml:"attempt_timeout_sec"`
	MaxAttempts       int    `toml:"max_attempts"`
}

// Translation contains configuration for text translation.
type Translation struct {
	Engine            string `toml:"engine"`
	SourceLanguage    string `toml:"source_language"`
	TargetLanguage    string `toml:"target_language"`
	PreserveTags      bool   `toml:"preserve_tags"`
	AttemptTimeoutSec int    `toml:"attempt_timeout_sec"`
	MaxAttempts       int    `toml:"max_attempts"`
}

// Range bounds a tunable multiplier with its default value.
type Range struct {
	Min     float64 `toml:"min"`
	Max     float64 `toml:"max"`
	Default float64 `toml:"default"`
}

// Synthesis contains configuration for text-to-speech.
type Synthesis struct {
	Engine            string            `toml:"engine"`
	Workers           int               `toml:"workers"`
	Rate              Range             `toml:"rate"`
	Volume            Range             `toml:"volume"`
	NormalizeDBFS     float64           `toml:"normalize_dbfs"`
	AttemptTimeoutSec int               `toml:"attempt_timeout_sec"`
	MaxAttempts       int               `toml:"max_attempts"`
	DefaultVoice      string            `toml:"default_voice"`
	MaleVoices        map[string]string `toml:"male_voices"`
	FemaleVoices      map[string]string `toml:"female_voices"`
}

// Alignment contains configuration for fitting synthesized clips to the
// source timeline.
type Alignment struct {
	MinRate           float64 `toml:"min_rate"`
	MaxRate           float64 `toml:"max_rate"`
	DriftToleranceSec float64 `toml:"drift_tolerance_sec"`
}

// Subtitles contains configuration for subtitle generation.
type Subtitles struct {
	Format       string  `toml:"format"`
	MaxLineChars int     `toml:"max_line_chars"`
	MaxLines     int     `toml:"max_lines"`
	MinCueSec    float64 `toml:"min_cue_sec"`
	MaxCueSec    float64 `toml:"max_cue_sec"`
	BurnIn       bool    `toml:"burn_in"`
}

// Mux contains configuration for the final video mux.
type Mux struct {
	VideoCodec        string  `toml:"video_codec"`
	CRF               int     `toml:"crf"`
	Preset            string  `toml:"preset"`
	AudioCodec        string  `toml:"audio_codec"`
	AudioBitrate      string  `toml:"audio_bitrate"`
	KeepOriginalAudio bool    `toml:"keep_original_audio"`
	OriginalVolume    float64 `toml:"original_volume"`
}

// Workflow contains configuration for queue timing and failure policy.
type Workflow struct {
	ErrorMode             string `toml:"error_mode"`
	PollIntervalSec       int    `toml:"poll_interval_sec"`
	ErrorRetryIntervalSec int    `toml:"error_retry_interval_sec"`
	HeartbeatIntervalSec  int    `toml:"heartbeat_interval_sec"`
	HeartbeatTimeoutSec   int    `toml:"heartbeat_timeout_sec"`
}

// OpenAI contains connection settings shared by the OpenAI-backed engines.
type OpenAI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	ChatModel       string `toml:"chat_model"`
	TranscribeModel string `toml:"transcribe_model"`
	TTSModel        string `toml:"tts_model"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic         string `toml:"ntfy_topic"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
	JobComplete       bool   `toml:"job_complete"`
	JobFailed         bool   `toml:"job_failed"`
	Review            bool   `toml:"review"`
	Queue             bool   `toml:"queue"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Overdub.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - Audio: analysis and output sample formats
//   - Segmentation: chunked silence-based speech splitting
//   - VAD: voice activity detection backend and tuning
//   - Speaker: pitch ranges and gender classification thresholds
//   - Transcription / Translation / Synthesis: engine selection and limits
//   - Alignment: rate clamps and drift tolerance
//   - Subtitles: cue shaping and burn-in
//   - Mux: final video/audio encoding
//   - Workflow: queue polling, heartbeats, and failure policy
//   - OpenAI: shared API connection settings
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Audio         Audio         `toml:"audio"`
	Segmentation  Segmentation  `toml:"segmentation"`
	VAD           VAD           `toml:"vad"`
	Speaker       Speaker       `toml:"speaker"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Alignment     Alignment     `toml:"alignment"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Mux           Mux           `toml:"mux"`
	Workflow      Workflow      `toml:"workflow"`
	OpenAI        OpenAI        `toml:"openai"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/overdub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/overdub/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("overdub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for queue operation.
// OutputDir is created on a best-effort basis so the workflow can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// UvxBinary returns the uvx executable name used to run WhisperX.
func (c *Config) UvxBinary() string {
	return "uvx"
}

// EdgeTTSBinary returns the edge-tts executable name.
func (c *Config) EdgeTTSBinary() string {
	return "edge-tts"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
