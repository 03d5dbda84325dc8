package config

const (
	defaultWorkingDir = "~/.local/share/overdub/work"
	defaultOutputDir  = "~/overdub"
	defaultLogDir     = "~/.local/share/overdub/logs"

	defaultAnalysisSampleRate = 16000
	defaultOutputSampleRate   = 24000
	defaultChannels           = 1

	defaultChunkDurationSec   = 30.0
	defaultOverlapSec         = 1.0
	defaultSilenceThresholdDB = -35.0
	defaultMinSilenceSec      = 0.5
	defaultKeepSilenceSec     = 0.3
	defaultMinSegmentSec      = 1.0

	defaultVADEngine       = "energy"
	defaultVADThreshold    = 0.5
	defaultVADMinSpeechMs  = 250
	defaultVADMinSilenceMs = 100

	defaultMalePitchMin    = 50.0
	defaultMalePitchMax    = 180.0
	defaultMalePitchBase   = 120.0
	defaultFemalePitchMin  = 150.0
	defaultFemalePitchMax  = 300.0
	defaultFemalePitchBase = 210.0
	defaultMinConfidence   = 0.6
	defaultGenderThreshold = 0.7

	defaultTranscriptionEngine     = "whisperx"
	defaultTranscriptionModel      = "small"
	defaultTranscriptionTimeoutSec = 300
	defaultTranslationEngine       = "openai"
	defaultTranslationTimeoutSec   = 60
	defaultTargetLanguage          = "en"
	defaultSynthesisEngine         = "edge"
	defaultSynthesisWorkers        = 4
	defaultSynthesisTimeoutSec     = 120
	defaultMaxAttempts             = 3
	defaultNormalizeDBFS           = -20.0

	defaultRateMin    = 0.8
	defaultRateMax    = 1.5
	defaultRateValue  = 1.0
	defaultVolumeMin  = 0.5
	defaultVolumeMax  = 2.0
	defaultVolumeBase = 1.0

	defaultDriftToleranceSec = 5.0

	defaultSubtitleFormat    = "srt"
	defaultSubtitleLineChars = 42
	defaultSubtitleMaxLines  = 2
	defaultSubtitleMinCueSec = 0.833
	defaultSubtitleMaxCueSec = 7.0

	defaultMuxVideoCodec     = "copy"
	defaultMuxCRF            = 23
	defaultMuxPreset         = "medium"
	defaultMuxAudioCodec     = "aac"
	defaultMuxAudioBitrate   = "192k"
	defaultMuxOriginalVolume = 0.1

	defaultErrorMode             = "lenient"
	defaultPollIntervalSec       = 5
	defaultErrorRetryIntervalSec = 10
	defaultHeartbeatIntervalSec  = 15
	defaultHeartbeatTimeoutSec   = 120

	defaultOpenAIChatModel       = "gpt-4o-mini"
	defaultOpenAITranscribeModel = "whisper-1"
	defaultOpenAITTSModel        = "tts-1"

	defaultNotifyRequestTimeoutSec = 10

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkingDir: defaultWorkingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Audio: Audio{
			SampleRate:       defaultAnalysisSampleRate,
			OutputSampleRate: defaultOutputSampleRate,
			Channels:         defaultChannels,
		},
		Segmentation: Segmentation{
			ChunkDurationSec:   defaultChunkDurationSec,
			OverlapSec:         defaultOverlapSec,
			SilenceThresholdDB: defaultSilenceThresholdDB,
			MinSilenceSec:      defaultMinSilenceSec,
			KeepSilenceSec:     defaultKeepSilenceSec,
			MinSegmentSec:      defaultMinSegmentSec,
			FallbackChunking:   true,
		},
		VAD: VAD{
			Engine:       defaultVADEngine,
			Threshold:    defaultVADThreshold,
			MinSpeechMs:  defaultVADMinSpeechMs,
			MinSilenceMs: defaultVADMinSilenceMs,
		},
		Speaker: Speaker{
			MalePitch: PitchRange{
				Min:  defaultMalePitchMin,
				Max:  defaultMalePitchMax,
				Base: defaultMalePitchBase,
			},
			FemalePitch: PitchRange{
				Min:  defaultFemalePitchMin,
				Max:  defaultFemalePitchMax,
				Base: defaultFemalePitchBase,
			},
			MinConfidence:   defaultMinConfidence,
			GenderThreshold: defaultGenderThreshold,
			Features:        []string{"pitch", "energy", "spectral"},
		},
		Transcription: Transcription{
			Engine:            defaultTranscriptionEngine,
			Model:             defaultTranscriptionModel,
			Language:          "auto",
			AttemptTimeoutSec: defaultTranscriptionTimeoutSec,
			MaxAttempts:       defaultMaxAttempts,
		},
		Translation: Translation{
			Engine:            defaultTranslationEngine,
			SourceLanguage:    "auto",
			TargetLanguage:    defaultTargetLanguage,
			PreserveTags:      true,
			AttemptTimeoutSec: defaultTranslationTimeoutSec,
			MaxAttempts:       defaultMaxAttempts,
		},
		Synthesis: Synthesis{
			Engine:  defaultSynthesisEngine,
			Workers: defaultSynthesisWorkers,
			Rate: Range{
				Min:     defaultRateMin,
				Max:     defaultRateMax,
				Default: defaultRateValue,
			},
			Volume: Range{
				Min:     defaultVolumeMin,
				Max:     defaultVolumeMax,
				Default: defaultVolumeBase,
			},
			NormalizeDBFS:     defaultNormalizeDBFS,
			AttemptTimeoutSec: defaultSynthesisTimeoutSec,
			MaxAttempts:       defaultMaxAttempts,
		},
		Alignment: Alignment{
			MinRate:           defaultRateMin,
			MaxRate:           defaultRateMax,
			DriftToleranceSec: defaultDriftToleranceSec,
		},
		Subtitles: Subtitles{
			Format:       defaultSubtitleFormat,
			MaxLineChars: defaultSubtitleLineChars,
			MaxLines:     defaultSubtitleMaxLines,
			MinCueSec:    defaultSubtitleMinCueSec,
			MaxCueSec:    defaultSubtitleMaxCueSec,
		},
		Mux: Mux{
			VideoCodec:        defaultMuxVideoCodec,
			CRF:               defaultMuxCRF,
			Preset:            defaultMuxPreset,
			AudioCodec:        defaultMuxAudioCodec,
			AudioBitrate:      defaultMuxAudioBitrate,
			KeepOriginalAudio: true,
			OriginalVolume:    defaultMuxOriginalVolume,
		},
		Workflow: Workflow{
			ErrorMode:             defaultErrorMode,
			PollIntervalSec:       defaultPollIntervalSec,
			ErrorRetryIntervalSec: defaultErrorRetryIntervalSec,
			HeartbeatIntervalSec:  defaultHeartbeatIntervalSec,
			HeartbeatTimeoutSec:   defaultHeartbeatTimeoutSec,
		},
		OpenAI: OpenAI{
			ChatModel:       defaultOpenAIChatModel,
			TranscribeModel: defaultOpenAITranscribeModel,
			TTSModel:        defaultOpenAITTSModel,
		},
		Notifications: Notifications{
			RequestTimeoutSec: defaultNotifyRequestTimeoutSec,
			JobComplete:       true,
			JobFailed:         true,
			Review:            true,
			Queue:             true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
