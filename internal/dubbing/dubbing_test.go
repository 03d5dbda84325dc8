package dubbing

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/engine"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/testsupport"
)

type stubTranscriber struct {
	mu    sync.Mutex
	calls int
	fn    func(audioPath, lang string) (engine.Transcription, error)
}

func (s *stubTranscriber) Name() string { return "stub" }

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath, lang string) (engine.Transcription, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(audioPath, lang)
	}
	return engine.Transcription{
		Text:       "hello world",
		Words:      []pipeline.Word{{Text: "hello", Start: 0.1, End: 0.5}},
		Confidence: 0.9,
		Language:   "en",
	}, nil
}

type stubTranslator struct {
	fn func(text, sourceLang, targetLang string) (string, error)
}

func (s *stubTranslator) Name() string { return "stub" }

func (s *stubTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if s.fn != nil {
		return s.fn(text, sourceLang, targetLang)
	}
	return "salam dünya", nil
}

type stubSynthesizer struct {
	mu         sync.Mutex
	calls      int
	voices     []string
	sampleRate int
	fail       func(req engine.SynthesisRequest) error
}

func (s *stubSynthesizer) Name() string { return "stub" }

func (s *stubSynthesizer) Synthesize(ctx context.Context, req engine.SynthesisRequest) error {
	s.mu.Lock()
	s.calls++
	s.voices = append(s.voices, req.VoiceID)
	s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(req); err != nil {
			return err
		}
	}
	return writeTone(req.OutputPath, s.sampleRate, 500*time.Millisecond)
}

func writeTone(path string, sampleRate int, d time.Duration) error {
	frames := int(float64(sampleRate) * d.Seconds())
	clip := &audio.Clip{SampleRate: sampleRate, Samples: make([]float64, frames)}
	for i := range clip.Samples {
		clip.Samples[i] = 0.4 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate))
	}
	return audio.WriteWAV(path, clip)
}

func newDubbingFixture(t *testing.T) (*config.Config, *queue.Store, *queue.Job, pipeline.Workspace) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Synthesis.Workers = 2
	cfg.Synthesis.MaxAttempts = 1
	cfg.Translation.TargetLanguage = "az"
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-dub")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteSpeechWAV(t, ws.SourceAudioPath(), cfg.Audio.SampleRate, 6*time.Second, 200,
		testsupport.Span{Start: time.Second, End: 2 * time.Second},
		testsupport.Span{Start: 4 * time.Second, End: 5 * time.Second},
	)
	segments := []pipeline.Segment{
		{ID: 0, Start: 0, End: 1, IsSpeech: false},
		{ID: 1, Start: 1, End: 2, IsSpeech: true},
		{ID: 2, Start: 2, End: 4, IsSpeech: false},
		{ID: 3, Start: 4, End: 5, IsSpeech: true},
		{ID: 4, Start: 5, End: 6, IsSpeech: false},
	}
	if err := pipeline.SaveSegments(ws, segments); err != nil {
		t.Fatal(err)
	}
	profiles := []pipeline.Profile{
		{SegmentID: 1, Gender: pipeline.GenderMale, PitchHz: 120, Confidence: 0.8},
		{SegmentID: 3, Gender: pipeline.GenderFemale, PitchHz: 210, Confidence: 0.7},
	}
	if err := pipeline.SaveProfiles(ws, profiles); err != nil {
		t.Fatal(err)
	}
	return cfg, store, job, ws
}

func newStageForTest(cfg *config.Config, store *queue.Store, synth *stubSynthesizer, transcriber *stubTranscriber) *Stage {
	if synth.sampleRate == 0 {
		synth.sampleRate = cfg.Audio.OutputSampleRate
	}
	return NewStageWithEngines(cfg, store, logging.NewNop(), engine.Set{
		Transcriber: transcriber,
		Translator:  &stubTranslator{},
		Synthesizer: synth,
	})
}

func TestStageExecuteHappyPath(t *testing.T) {
	cfg, store, job, ws := newDubbingFixture(t)
	transcriber := &stubTranscriber{}
	synth := &stubSynthesizer{}
	handler := newStageForTest(cfg, store, synth, transcriber)

	ctx := context.Background()
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	clips, err := pipeline.LoadClips(ws)
	if err != nil {
		t.Fatalf("LoadClips: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	for _, clip := range clips {
		if clip.Failed {
			t.Fatalf("clip %d failed: %s", clip.SegmentID, clip.Error)
		}
		rendered, err := audio.ReadWAV(clip.Path)
		if err != nil {
			t.Fatalf("read clip %d: %v", clip.SegmentID, err)
		}
		if rendered.SampleRate != cfg.Audio.OutputSampleRate {
			t.Fatalf("clip rate = %d, want %d", rendered.SampleRate, cfg.Audio.OutputSampleRate)
		}
		// 500ms tone plus at least the minimum trailing pad.
		if rendered.Duration() < 600*time.Millisecond {
			t.Fatalf("clip %d too short: %v", clip.SegmentID, rendered.Duration())
		}
		if clip.VoiceID == "" {
			t.Fatalf("clip %d has no voice", clip.SegmentID)
		}
	}

	transcripts, err := pipeline.LoadTranscripts(ws)
	if err != nil {
		t.Fatalf("LoadTranscripts: %v", err)
	}
	if len(transcripts) != 2 {
		t.Fatalf("transcripts = %d, want 2", len(transcripts))
	}
	for _, transcript := range transcripts {
		if len(transcript.Words) == 0 {
			continue
		}
		var segStart float64
		switch transcript.SegmentID {
		case 1:
			segStart = 1
		case 3:
			segStart = 4
		}
		if got := transcript.Words[0].Start; got != segStart+0.1 {
			t.Fatalf("word start = %v, want %v (source-relative)", got, segStart+0.1)
		}
	}

	if job.SegmentsFailed != 0 {
		t.Fatalf("SegmentsFailed = %d", job.SegmentsFailed)
	}
	if job.SourceLanguage != "en" {
		t.Fatalf("detected SourceLanguage = %q, want en", job.SourceLanguage)
	}
}

func TestStageExecuteLenientRecordsFailure(t *testing.T) {
	cfg, store, job, ws := newDubbingFixture(t)
	cfg.Workflow.ErrorMode = "lenient"
	transcriber := &stubTranscriber{}
	synth := &stubSynthesizer{
		fail: func(req engine.SynthesisRequest) error {
			if strings.Contains(req.OutputPath, "seg-0001") {
				return services.Wrap(services.ErrSynthesis, "dubbing", "synthesize", "provider down", nil)
			}
			return nil
		},
	}
	handler := newStageForTest(cfg, store, synth, transcriber)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute in lenient mode: %v", err)
	}
	clips, err := pipeline.LoadClips(ws)
	if err != nil {
		t.Fatal(err)
	}
	var failed, ok int
	for _, clip := range clips {
		if clip.Failed {
			failed++
			if clip.Error == "" {
				t.Fatal("failed clip missing error message")
			}
		} else {
			ok++
		}
	}
	if failed != 1 || ok != 1 {
		t.Fatalf("failed=%d ok=%d, want 1/1", failed, ok)
	}
	if job.SegmentsFailed != 1 {
		t.Fatalf("SegmentsFailed = %d, want 1", job.SegmentsFailed)
	}
}

func TestStageExecuteStrictAborts(t *testing.T) {
	cfg, store, job, _ := newDubbingFixture(t)
	cfg.Workflow.ErrorMode = "strict"
	transcriber := &stubTranscriber{}
	synth := &stubSynthesizer{
		fail: func(engine.SynthesisRequest) error {
			return services.Wrap(services.ErrSynthesis, "dubbing", "synthesize", "provider down", nil)
		},
	}
	handler := newStageForTest(cfg, store, synth, transcriber)

	err := handler.Execute(context.Background(), job)
	if err == nil {
		t.Fatal("expected strict mode to fail the stage")
	}
	if queueStatus := services.FailureStatus(err); queueStatus != queue.StatusFailed {
		t.Fatalf("failure status = %v, want failed", queueStatus)
	}
}

func TestSynthesizeFallsBackToDefaultVoice(t *testing.T) {
	cfg, store, job, ws := newDubbingFixture(t)
	cfg.Synthesis.DefaultVoice = "az-AZ-FallbackNeural"
	transcriber := &stubTranscriber{}
	synth := &stubSynthesizer{
		fail: func(req engine.SynthesisRequest) error {
			if req.VoiceID != "az-AZ-FallbackNeural" {
				return services.Wrap(services.ErrSynthesis, "dubbing", "synthesize", "voice unavailable", nil)
			}
			return nil
		},
	}
	handler := newStageForTest(cfg, store, synth, transcriber)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.SegmentsFailed != 0 {
		t.Fatalf("SegmentsFailed = %d, want 0 after voice fallback", job.SegmentsFailed)
	}

	clips, err := pipeline.LoadClips(ws)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	for _, clip := range clips {
		if clip.Failed {
			t.Fatalf("clip %d failed: %s", clip.SegmentID, clip.Error)
		}
		if clip.VoiceID != "az-AZ-FallbackNeural" {
			t.Fatalf("clip %d voice = %q, want the default voice", clip.SegmentID, clip.VoiceID)
		}
	}

	// The gendered voice must be tried before the default steps in.
	synth.mu.Lock()
	voices := append([]string(nil), synth.voices...)
	synth.mu.Unlock()
	gendered := 0
	for _, voice := range voices {
		if voice != "az-AZ-FallbackNeural" {
			gendered++
		}
	}
	if gendered == 0 {
		t.Fatalf("default voice used without trying the gendered voice first: %v", voices)
	}
}

func TestStageExecuteResumeSkipsFinishedSegments(t *testing.T) {
	cfg, store, job, ws := newDubbingFixture(t)
	transcriber := &stubTranscriber{}
	synth := &stubSynthesizer{sampleRate: cfg.Audio.OutputSampleRate}
	handler := newStageForTest(cfg, store, synth, transcriber)

	// Simulate a prior attempt that finished segment 1 only.
	clipPath := ws.ClipPath(1)
	if err := writeTone(clipPath, cfg.Audio.OutputSampleRate, 400*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	priorClips := []pipeline.Clip{{SegmentID: 1, Path: clipPath, Duration: 0.4, SampleRate: cfg.Audio.OutputSampleRate, VoiceID: "prior-voice"}}
	if err := pipeline.SaveClips(ws, priorClips); err != nil {
		t.Fatal(err)
	}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if transcriber.calls != 1 {
		t.Fatalf("transcriber calls = %d, want 1 (segment 1 reused)", transcriber.calls)
	}
	if synth.calls != 1 {
		t.Fatalf("synthesizer calls = %d, want 1", synth.calls)
	}
	clips, err := pipeline.LoadClips(ws)
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	for _, clip := range clips {
		if clip.SegmentID == 1 && clip.VoiceID != "prior-voice" {
			t.Fatalf("segment 1 was re-synthesized")
		}
	}
}
