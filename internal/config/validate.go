package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validateSpeaker(); err != nil {
		return err
	}
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.OutputSampleRate <= 0 {
		return errors.New("audio.output_sample_rate must be positive")
	}
	if c.Audio.Channels != 1 {
		return errors.New("audio.channels must be 1 (analysis operates on mono audio)")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	seg := c.Segmentation
	if seg.ChunkDurationSec <= 0 {
		return errors.New("segmentation.chunk_duration_sec must be positive")
	}
	if seg.OverlapSec < 0 {
		return errors.New("segmentation.overlap_sec must be >= 0")
	}
	if seg.OverlapSec >= seg.ChunkDurationSec {
		return errors.New("segmentation.overlap_sec must be less than segmentation.chunk_duration_sec")
	}
	if seg.SilenceThresholdDB >= 0 {
		return errors.New("segmentation.silence_threshold_db must be negative (dBFS)")
	}
	if seg.MinSilenceSec <= 0 {
		return errors.New("segmentation.min_silence_sec must be positive")
	}
	if seg.KeepSilenceSec < 0 {
		return errors.New("segmentation.keep_silence_sec must be >= 0")
	}
	if seg.MinSegmentSec < 0 {
		return errors.New("segmentation.min_segment_sec must be >= 0")
	}
	return nil
}

func (c *Config) validateVAD() error {
	switch c.VAD.Engine {
	case "energy", "webrtc", "silero":
	default:
		return fmt.Errorf("vad.engine must be one of energy, webrtc, silero (got %q)", c.VAD.Engine)
	}
	if c.VAD.Engine == "silero" && strings.TrimSpace(c.VAD.ModelPath) == "" {
		return errors.New("vad.model_path must be set when vad.engine is silero")
	}
	if c.VAD.Threshold < 0 || c.VAD.Threshold > 1 {
		return errors.New("vad.threshold must be between 0 and 1")
	}
	if c.VAD.MinSpeechMs <= 0 {
		return errors.New("vad.min_speech_ms must be positive")
	}
	if c.VAD.MinSilenceMs <= 0 {
		return errors.New("vad.min_silence_ms must be positive")
	}
	return nil
}

func (c *Config) validateSpeaker() error {
	if err := validatePitchRange("speaker.male_pitch", c.Speaker.MalePitch); err != nil {
		return err
	}
	if err := validatePitchRange("speaker.female_pitch", c.Speaker.FemalePitch); err != nil {
		return err
	}
	if c.Speaker.MinConfidence < 0 || c.Speaker.MinConfidence > 1 {
		return errors.New("speaker.min_confidence must be between 0 and 1")
	}
	if c.Speaker.GenderThreshold < 0 || c.Speaker.GenderThreshold > 1 {
		return errors.New("speaker.gender_threshold must be between 0 and 1")
	}
	for _, feature := range c.Speaker.Features {
		switch strings.ToLower(strings.TrimSpace(feature)) {
		case "pitch", "energy", "spectral":
		default:
			return fmt.Errorf("speaker.features contains unknown feature %q", feature)
		}
	}
	return nil
}

func validatePitchRange(key string, r PitchRange) error {
	if r.Min <= 0 || r.Max <= 0 || r.Base <= 0 {
		return fmt.Errorf("%s values must be positive", key)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("%s.min must be less than %s.max", key, key)
	}
	if r.Base < r.Min || r.Base > r.Max {
		return fmt.Errorf("%s.base must fall inside [%s.min, %s.max]", key, key, key)
	}
	return nil
}

func (c *Config) validateEngines() error {
	switch c.Transcription.Engine {
	case "whisperx", "openai":
	default:
		return fmt.Errorf("transcription.engine must be whisperx or openai (got %q)", c.Transcription.Engine)
	}
	switch c.Translation.Engine {
	case "openai":
	default:
		return fmt.Errorf("translation.engine must be openai (got %q)", c.Translation.Engine)
	}
	switch c.Synthesis.Engine {
	case "edge", "openai":
	default:
		return fmt.Errorf("synthesis.engine must be edge or openai (got %q)", c.Synthesis.Engine)
	}

	needsOpenAI := c.Transcription.Engine == "openai" ||
		c.Translation.Engine == "openai" ||
		c.Synthesis.Engine == "openai"
	if needsOpenAI && c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/overdub/config.toml"
		}
		return fmt.Errorf("openai.api_key is required for the selected engines. Set OPENAI_API_KEY env var or edit %s (create with 'overdub config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if err := validateLanguageValue("transcription.language", c.Transcription.Language, true); err != nil {
		return err
	}
	if err := validateLanguageValue("translation.source_language", c.Translation.SourceLanguage, true); err != nil {
		return err
	}
	return validateLanguageValue("translation.target_language", c.Translation.TargetLanguage, false)
}

func validateLanguageValue(key, value string, allowAuto bool) error {
	if value == "auto" {
		if allowAuto {
			return nil
		}
		return fmt.Errorf("%s must name a concrete language", key)
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("%s: %q is not a valid language tag", key, value)
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	if c.Synthesis.Workers < 1 {
		return errors.New("synthesis.workers must be >= 1")
	}
	if err := validateRange("synthesis.rate", c.Synthesis.Rate); err != nil {
		return err
	}
	if err := validateRange("synthesis.volume", c.Synthesis.Volume); err != nil {
		return err
	}
	if c.Synthesis.NormalizeDBFS >= 0 {
		return errors.New("synthesis.normalize_dbfs must be negative (dBFS)")
	}
	return nil
}

func validateRange(key string, r Range) error {
	if r.Min <= 0 {
		return fmt.Errorf("%s.min must be positive", key)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s.min must not exceed %s.max", key, key)
	}
	if r.Default < r.Min || r.Default > r.Max {
		return fmt.Errorf("%s.default must fall inside [%s.min, %s.max]", key, key, key)
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	if a.MinRate <= 0 {
		return errors.New("alignment.min_rate must be positive")
	}
	if a.MinRate > a.MaxRate {
		return errors.New("alignment.min_rate must not exceed alignment.max_rate")
	}
	if a.MinRate > 1 || a.MaxRate < 1 {
		return errors.New("alignment rate bounds must bracket 1.0 so unmodified playback stays reachable")
	}
	if a.DriftToleranceSec <= 0 {
		return errors.New("alignment.drift_tolerance_sec must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	s := c.Subtitles
	if s.Format != "srt" {
		return fmt.Errorf("subtitles.format must be srt (got %q)", s.Format)
	}
	if s.MaxLineChars <= 0 {
		return errors.New("subtitles.max_line_chars must be positive")
	}
	if s.MaxLines <= 0 {
		return errors.New("subtitles.max_lines must be positive")
	}
	if s.MinCueSec <= 0 {
		return errors.New("subtitles.min_cue_sec must be positive")
	}
	if s.MaxCueSec <= s.MinCueSec {
		return errors.New("subtitles.max_cue_sec must be greater than subtitles.min_cue_sec")
	}
	return nil
}

func (c *Config) validateMux() error {
	m := c.Mux
	if strings.TrimSpace(m.VideoCodec) == "" {
		return errors.New("mux.video_codec must be set")
	}
	if m.CRF < 0 || m.CRF > 51 {
		return errors.New("mux.crf must be between 0 and 51")
	}
	if strings.TrimSpace(m.Preset) == "" {
		return errors.New("mux.preset must be set")
	}
	if strings.TrimSpace(m.AudioCodec) == "" {
		return errors.New("mux.audio_codec must be set")
	}
	if strings.TrimSpace(m.AudioBitrate) == "" {
		return errors.New("mux.audio_bitrate must be set")
	}
	if m.OriginalVolume < 0 || m.OriginalVolume > 1 {
		return errors.New("mux.original_volume must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.ErrorMode {
	case "lenient", "strict":
	default:
		return fmt.Errorf("workflow.error_mode must be lenient or strict (got %q)", c.Workflow.ErrorMode)
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval_sec":        c.Workflow.PollIntervalSec,
		"workflow.error_retry_interval_sec": c.Workflow.ErrorRetryIntervalSec,
		"notifications.request_timeout_sec": c.Notifications.RequestTimeoutSec,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatIntervalSec <= 0 {
		return errors.New("workflow.heartbeat_interval_sec must be positive")
	}
	if c.Workflow.HeartbeatTimeoutSec <= 0 {
		return errors.New("workflow.heartbeat_timeout_sec must be positive")
	}
	if c.Workflow.HeartbeatTimeoutSec <= c.Workflow.HeartbeatIntervalSec {
		return errors.New("workflow.heartbeat_timeout_sec must be greater than workflow.heartbeat_interval_sec")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeoutSec <= 0 {
		return errors.New("notifications.request_timeout_sec must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
