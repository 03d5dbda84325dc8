// Package dubbing runs the per-segment speech pipeline: each speech
// segment is transcribed, translated, and re-synthesized in the target
// voice. Segments are processed by a bounded worker pool and every
// intermediate result is persisted, so a retried job only redoes the
// segments that never produced a clip.
package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/engine"
	"overdub/internal/language"
	"overdub/internal/logging"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
	"overdub/internal/voice"
)

// Trailing silence appended to every synthesized clip, derived from the
// segmentation minimum-silence setting and clamped to a sane range. The
// pad keeps adjacent clips from butting against each other when a clip
// runs slightly long.
const (
	minClipPad = 100 * time.Millisecond
	maxClipPad = 400 * time.Millisecond
)

// Stage is the dubbing workflow handler.
type Stage struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	engines engine.Set
	catalog *voice.Catalog
}

// NewStage constructs the dubbing stage handler, building the engine set
// the configuration selects.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Stage, error) {
	stageLogger := logging.NewComponentLogger(logger, "dubbing")
	ffmpeg := ffmpegcmd.New(cfg.FFmpegBinary(), stageLogger)
	engines, err := engine.Build(cfg, ffmpeg, stageLogger)
	if err != nil {
		return nil, err
	}
	return NewStageWithEngines(cfg, store, logger, engines), nil
}

// NewStageWithEngines allows injecting engines (used in tests).
func NewStageWithEngines(cfg *config.Config, store *queue.Store, logger *slog.Logger, engines engine.Set) *Stage {
	return &Stage{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "dubbing"),
		engines: engines,
		catalog: voice.NewCatalog(cfg),
	}
}

// SetLogger replaces the stage logger for the current request.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	job.InitProgress("Synthesizing", "Preparing dubbing")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))
	for _, artifact := range []string{ws.SourceAudioPath(), ws.SegmentsPath(), ws.ProfilesPath()} {
		if !pipeline.ArtifactExists(artifact) {
			return services.Wrap(services.ErrValidation, "dubbing", "locate artifacts",
				"Segmentation artifacts missing; rerun segmentation", nil)
		}
	}
	if err := os.MkdirAll(ws.ClipsDir(), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "dubbing", "create clips dir",
			"Could not create the clips directory", err)
	}
	logger.Info("starting dubbing",
		logging.String("transcriber", s.engines.Transcriber.Name()),
		logging.String("translator", s.engines.Translator.Name()),
		logging.String("synthesizer", s.engines.Synthesizer.Name()),
		logging.Int("workers", s.cfg.Synthesis.Workers),
	)
	return nil
}

// segmentResult is the outcome of one speech segment's pipeline run.
type segmentResult struct {
	transcript  *pipeline.Transcript
	translation *pipeline.Translation
	clip        pipeline.Clip
	err         error
}

func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))

	segments, err := pipeline.LoadSegments(ws)
	if err != nil {
		return stage.RequireArtifact(err, "dubbing", "segments")
	}
	profiles, err := pipeline.LoadProfiles(ws)
	if err != nil {
		return stage.RequireArtifact(err, "dubbing", "profiles")
	}
	source, err := audio.ReadWAV(ws.SourceAudioPath())
	if err != nil {
		return services.Wrap(services.ErrValidation, "dubbing", "read audio",
			"Could not read the extracted audio", err)
	}

	profileByID := make(map[int]pipeline.Profile, len(profiles))
	for _, profile := range profiles {
		profileByID[profile.SegmentID] = profile
	}
	prior := s.loadPriorResults(ws)

	speech := make([]pipeline.Segment, 0, len(segments))
	for _, segment := range segments {
		if segment.IsSpeech {
			speech = append(speech, segment)
		}
	}
	if len(speech) == 0 {
		logger.Warn("no speech segments to dub",
			logging.String(logging.FieldEventType, "dubbing_empty"),
			logging.String(logging.FieldErrorHint, "check vad thresholds if the source contains speech"),
			logging.String(logging.FieldImpact, "output will carry the original silence only"),
		)
		return s.persistResults(ws, job, nil)
	}

	sourceLang := strings.TrimSpace(job.SourceLanguage)
	if sourceLang == "" {
		sourceLang = s.cfg.Transcription.Language
	}

	results := make(map[int]*segmentResult, len(speech))
	var (
		mu   sync.Mutex
		done int
	)

	strict := s.cfg.Workflow.ErrorMode == "strict"
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Synthesis.Workers)

	for _, segment := range speech {
		group.Go(func() error {
			result := s.processSegment(groupCtx, logger, ws, source, segment, profileByID[segment.ID], prior, sourceLang)

			mu.Lock()
			results[segment.ID] = result
			done++
			job.SegmentsCompleted = done
			if result.err != nil {
				job.SegmentsFailed++
			}
			job.SetProgress("Synthesizing",
				fmt.Sprintf("Segment %d/%d", done, len(speech)),
				float64(done)/float64(len(speech))*100)
			s.persistProgress(ctx, logger, job)
			mu.Unlock()

			if result.err != nil {
				logger.Error("segment dubbing failed",
					logging.Int(logging.FieldSegmentIndex, segment.ID),
					logging.String(logging.FieldEventType, "segment_failed"),
					logging.String(logging.FieldErrorHint, "retry the job or relax workflow.error_mode"),
					logging.String(logging.FieldImpact, "segment slot stays silent in the dubbed track"),
					logging.Error(result.err),
				)
				if strict {
					return result.err
				}
			}
			return nil
		})
	}

	groupErr := group.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	if persistErr := s.persistResults(ws, job, orderedResults(speech, results)); persistErr != nil {
		return persistErr
	}

	if detected := detectedLanguage(results); detected != "" {
		if current := strings.TrimSpace(job.SourceLanguage); current == "" || language.IsAuto(current) {
			job.SourceLanguage = detected
		}
	}

	if groupErr != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "segment pipeline",
			fmt.Sprintf("Dubbing aborted after %d failed segment(s) in strict mode", job.SegmentsFailed), groupErr)
	}
	job.SetProgressComplete("Synthesizing",
		fmt.Sprintf("%d clips synthesized, %d failed", len(speech)-job.SegmentsFailed, job.SegmentsFailed))
	logger.Info("dubbing complete",
		logging.Int(logging.FieldSegmentCount, len(speech)),
		logging.Int("failed_segments", job.SegmentsFailed),
	)
	return nil
}

// priorResults indexes a previous attempt's manifests for resume.
type priorResults struct {
	transcripts  map[int]pipeline.Transcript
	translations map[int]pipeline.Translation
	clips        map[int]pipeline.Clip
}

func (s *Stage) loadPriorResults(ws pipeline.Workspace) priorResults {
	prior := priorResults{
		transcripts:  map[int]pipeline.Transcript{},
		translations: map[int]pipeline.Translation{},
		clips:        map[int]pipeline.Clip{},
	}
	if transcripts, err := pipeline.LoadTranscripts(ws); err == nil {
		for _, transcript := range transcripts {
			prior.transcripts[transcript.SegmentID] = transcript
		}
	}
	if translations, err := pipeline.LoadTranslations(ws); err == nil {
		for _, translation := range translations {
			prior.translations[translation.SegmentID] = translation
		}
	}
	if clips, err := pipeline.LoadClips(ws); err == nil {
		for _, clip := range clips {
			prior.clips[clip.SegmentID] = clip
		}
	}
	return prior
}

func (s *Stage) processSegment(ctx context.Context, logger *slog.Logger, ws pipeline.Workspace, source *audio.Clip, segment pipeline.Segment, profile pipeline.Profile, prior priorResults, sourceLang string) *segmentResult {
	result := &segmentResult{}

	if clip, ok := prior.clips[segment.ID]; ok && !clip.Failed && pipeline.ArtifactExists(clip.Path) {
		result.clip = clip
		if transcript, ok := prior.transcripts[segment.ID]; ok {
			result.transcript = &transcript
		}
		if translation, ok := prior.translations[segment.ID]; ok {
			result.translation = &translation
		}
		logger.Debug("reusing synthesized clip",
			logging.Int(logging.FieldSegmentIndex, segment.ID),
			logging.String("clip", clip.Path),
		)
		return result
	}

	transcript, err := s.transcribeSegment(ctx, logger, ws, source, segment, prior, sourceLang)
	if err != nil {
		return failedResult(segment, err)
	}
	result.transcript = transcript
	if strings.TrimSpace(transcript.Text) == "" {
		logger.Debug("segment transcribed to nothing; leaving slot silent",
			logging.Int(logging.FieldSegmentIndex, segment.ID))
		return result
	}

	translation, err := s.translateSegment(ctx, logger, segment, transcript, prior)
	if err != nil {
		return failedResult(segment, err)
	}
	result.translation = translation

	clip, err := s.synthesizeSegment(ctx, logger, ws, segment, profile, translation)
	if err != nil {
		return failedResult(segment, err)
	}
	result.clip = clip
	return result
}

func failedResult(segment pipeline.Segment, err error) *segmentResult {
	return &segmentResult{
		clip: pipeline.Clip{SegmentID: segment.ID, Failed: true, Error: err.Error()},
		err:  err,
	}
}

func (s *Stage) transcribeSegment(ctx context.Context, logger *slog.Logger, ws pipeline.Workspace, source *audio.Clip, segment pipeline.Segment, prior priorResults, sourceLang string) (*pipeline.Transcript, error) {
	if transcript, ok := prior.transcripts[segment.ID]; ok && strings.TrimSpace(transcript.Text) != "" {
		return &transcript, nil
	}

	slicePath := segmentAudioPath(ws, segment.ID)
	slice := source.Slice(secondsToDuration(segment.Start), secondsToDuration(segment.End))
	if err := audio.WriteWAV(slicePath, slice); err != nil {
		return nil, services.Wrap(services.ErrSegmentation, "dubbing", "write segment audio",
			"Could not write the segment slice for transcription", err)
	}
	defer os.Remove(slicePath)

	var transcription engine.Transcription
	policy := engine.PolicyFromLimits(s.cfg.Transcription.MaxAttempts, s.cfg.Transcription.AttemptTimeoutSec)
	err := engine.Retry(ctx, logger, policy, "transcribe", func(ctx context.Context) error {
		var err error
		transcription, err = s.engines.Transcriber.Transcribe(ctx, slicePath, sourceLang)
		return err
	})
	if err != nil {
		return nil, err
	}

	transcript := &pipeline.Transcript{
		SegmentID:  segment.ID,
		Text:       strings.TrimSpace(transcription.Text),
		Confidence: transcription.Confidence,
		Language:   transcription.Language,
	}
	for _, word := range transcription.Words {
		transcript.Words = append(transcript.Words, pipeline.Word{
			Text:  word.Text,
			Start: segment.Start + word.Start,
			End:   segment.Start + word.End,
		})
	}
	return transcript, nil
}

func (s *Stage) translateSegment(ctx context.Context, logger *slog.Logger, segment pipeline.Segment, transcript *pipeline.Transcript, prior priorResults) (*pipeline.Translation, error) {
	if translation, ok := prior.translations[segment.ID]; ok && strings.TrimSpace(translation.Text) != "" {
		return &translation, nil
	}

	sourceLang := transcript.Language
	if strings.TrimSpace(sourceLang) == "" {
		sourceLang = s.cfg.Translation.SourceLanguage
	}
	targetLang := s.cfg.Translation.TargetLanguage

	var translated string
	policy := engine.PolicyFromLimits(s.cfg.Translation.MaxAttempts, s.cfg.Translation.AttemptTimeoutSec)
	err := engine.Retry(ctx, logger, policy, "translate", func(ctx context.Context) error {
		var err error
		translated, err = s.engines.Translator.Translate(ctx, transcript.Text, sourceLang, targetLang)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &pipeline.Translation{
		SegmentID:      segment.ID,
		Text:           translated,
		SourceLanguage: language.ToISO2(sourceLang),
		TargetLanguage: language.ToISO2(targetLang),
	}, nil
}

func (s *Stage) synthesizeSegment(ctx context.Context, logger *slog.Logger, ws pipeline.Workspace, segment pipeline.Segment, profile pipeline.Profile, translation *pipeline.Translation) (pipeline.Clip, error) {
	selection := s.catalog.Select(s.cfg.Translation.TargetLanguage, profile)
	if !s.engines.Capabilities.PitchControl {
		selection.PitchOffsetHz = 0
	}
	clipPath := ws.ClipPath(segment.ID)

	policy := engine.PolicyFromLimits(s.cfg.Synthesis.MaxAttempts, s.cfg.Synthesis.AttemptTimeoutSec)
	render := func(sel voice.Selection) error {
		return engine.Retry(ctx, logger, policy, "synthesize", func(ctx context.Context) error {
			return s.engines.Synthesizer.Synthesize(ctx, engine.SynthesisRequest{
				Text:          translation.Text,
				VoiceID:       sel.VoiceID,
				PitchOffsetHz: sel.PitchOffsetHz,
				OutputPath:    clipPath,
			})
		})
	}

	err := render(selection)
	if err != nil && ctx.Err() == nil {
		// The selected voice exhausted its attempt budget; the default
		// voice is the last resort before the slot goes silent.
		if fallback := s.catalog.Fallback(s.cfg.Translation.TargetLanguage); fallback.VoiceID != "" && fallback.VoiceID != selection.VoiceID {
			logging.WarnWithContext(logger, "voice failed, retrying with the default voice", "synthesis_fallback",
				logging.Int(logging.FieldSegmentIndex, segment.ID),
				logging.String("voice", selection.VoiceID),
				logging.String("fallback_voice", fallback.VoiceID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the synthesis voice maps for the target language"),
				logging.String(logging.FieldImpact, "segment dubs with the default voice"),
			)
			selection = fallback
			err = render(selection)
		}
	}
	if err != nil {
		return pipeline.Clip{}, err
	}

	duration, err := s.finishClip(clipPath)
	if err != nil {
		return pipeline.Clip{}, services.Wrap(services.ErrSynthesis, "dubbing", "post-process clip",
			"Synthesized clip could not be post-processed", err)
	}

	return pipeline.Clip{
		SegmentID:  segment.ID,
		Path:       clipPath,
		Duration:   duration,
		SampleRate: s.cfg.Audio.OutputSampleRate,
		VoiceID:    selection.VoiceID,
	}, nil
}

// finishClip normalizes loudness, resamples to the output rate, and
// appends the trailing pad. Returns the final duration in seconds.
func (s *Stage) finishClip(path string) (float64, error) {
	clip, err := audio.ReadWAV(path)
	if err != nil {
		return 0, err
	}
	clip.NormalizeRMS(s.cfg.Synthesis.NormalizeDBFS)
	if clip.SampleRate != s.cfg.Audio.OutputSampleRate {
		clip = audio.Resample(clip, s.cfg.Audio.OutputSampleRate)
	}
	clip.AppendSilence(s.clipPad())
	if err := audio.WriteWAV(path, clip); err != nil {
		return 0, err
	}
	return clip.Duration().Seconds(), nil
}

func (s *Stage) clipPad() time.Duration {
	pad := time.Duration(0.4 * s.cfg.Segmentation.MinSilenceSec * float64(time.Second))
	if pad < minClipPad {
		return minClipPad
	}
	if pad > maxClipPad {
		return maxClipPad
	}
	return pad
}

func orderedResults(speech []pipeline.Segment, results map[int]*segmentResult) []*segmentResult {
	ordered := make([]*segmentResult, 0, len(results))
	for _, segment := range speech {
		if result, ok := results[segment.ID]; ok && result != nil {
			ordered = append(ordered, result)
		}
	}
	return ordered
}

func detectedLanguage(results map[int]*segmentResult) string {
	votes := map[string]int{}
	for _, result := range results {
		if result == nil || result.transcript == nil {
			continue
		}
		if lang := language.ToISO2(result.transcript.Language); lang != "" {
			votes[lang]++
		}
	}
	best, bestCount := "", 0
	for lang, count := range votes {
		if count > bestCount || (count == bestCount && lang < best) {
			best, bestCount = lang, count
		}
	}
	return best
}

func (s *Stage) persistResults(ws pipeline.Workspace, job *queue.Job, results []*segmentResult) error {
	transcripts := make([]pipeline.Transcript, 0, len(results))
	translations := make([]pipeline.Translation, 0, len(results))
	clips := make([]pipeline.Clip, 0, len(results))
	for _, result := range results {
		if result.transcript != nil {
			transcripts = append(transcripts, *result.transcript)
		}
		if result.translation != nil {
			translations = append(translations, *result.translation)
		}
		// Empty transcripts produce no clip; their slots stay silent.
		if result.clip.Path != "" || result.clip.Failed {
			clips = append(clips, result.clip)
		}
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].SegmentID < clips[j].SegmentID })

	if err := pipeline.SaveTranscripts(ws, transcripts); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "save transcripts",
			"Could not persist the transcript manifest", err)
	}
	if err := pipeline.SaveTranslations(ws, translations); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "save translations",
			"Could not persist the translation manifest", err)
	}
	if err := pipeline.SaveClips(ws, clips); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "save clips",
			"Could not persist the clip manifest", err)
	}
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.engines.Transcriber == nil || s.engines.Translator == nil || s.engines.Synthesizer == nil {
		return stage.Unhealthy("dubbing", "engine set incomplete")
	}
	if s.cfg.Transcription.Engine == "whisperx" {
		if _, err := exec.LookPath(s.cfg.UvxBinary()); err != nil {
			return stage.Unhealthy("dubbing", "uvx not found on PATH")
		}
	}
	if s.cfg.Synthesis.Engine == "edge" {
		if _, err := exec.LookPath(s.cfg.EdgeTTSBinary()); err != nil {
			return stage.Unhealthy("dubbing", "edge-tts not found on PATH")
		}
	}
	return stage.Healthy("dubbing")
}

func (s *Stage) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}

func segmentAudioPath(ws pipeline.Workspace, segmentID int) string {
	return fmt.Sprintf("%s.src.wav", strings.TrimSuffix(ws.ClipPath(segmentID), ".wav"))
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
