package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"overdub/internal/logging"
	"overdub/internal/media/ffprobe"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/testsupport"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "input.mp4", "nb_streams": 2, "duration": "90.5"}
}`

func fakeProbe(t *testing.T, payload string, err error) {
	t.Helper()
	orig := probe
	probe = func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		if err != nil {
			return ffprobe.Result{}, err
		}
		return ffprobe.Parse([]byte(payload))
	}
	t.Cleanup(func() { probe = orig })
}

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(path, []byte("fake container"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractorExecute(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubBinary("ffprobe", "#!/bin/sh\nexit 0\n"),
		testsupport.WithStubBinary("ffmpeg", "#!/bin/sh\nfor last; do :; done\n: > \"$last\"\n"),
	)
	store := testsupport.MustOpenStore(t, cfg)
	source := writeSource(t, testsupport.BaseDir(cfg))
	job := testsupport.NewJob(t, store, source, "fp-extract")
	fakeProbe(t, probeJSON, nil)

	extractor := New(cfg, store, logging.NewNop())
	ctx := context.Background()
	if err := extractor.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := extractor.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	if job.AudioFile != ws.SourceAudioPath() {
		t.Fatalf("AudioFile = %q, want %q", job.AudioFile, ws.SourceAudioPath())
	}
	if _, err := os.Stat(job.AudioFile); err != nil {
		t.Fatalf("extracted audio missing: %v", err)
	}

	meta := Metadata(job)
	if !meta.HasVideo {
		t.Fatal("expected HasVideo from probe metadata")
	}
	if meta.DurationSec != 90.5 {
		t.Fatalf("DurationSec = %v, want 90.5", meta.DurationSec)
	}
	if meta.AudioCodec != "aac" {
		t.Fatalf("AudioCodec = %q", meta.AudioCodec)
	}
}

func TestExtractorReusesExistingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubBinary("ffprobe", "#!/bin/sh\nexit 0\n"),
		testsupport.WithStubBinary("ffmpeg", "#!/bin/sh\nexit 1\n"),
	)
	store := testsupport.MustOpenStore(t, cfg)
	source := writeSource(t, testsupport.BaseDir(cfg))
	job := testsupport.NewJob(t, store, source, "fp-resume")
	fakeProbe(t, probeJSON, nil)

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.SourceAudioPath(), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	extractor := New(cfg, store, logging.NewNop())
	// The ffmpeg stub always fails, so success proves the artifact was reused.
	if err := extractor.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestExtractorRejectsAudiolessSource(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	source := writeSource(t, testsupport.BaseDir(cfg))
	job := testsupport.NewJob(t, store, source, "fp-noaudio")
	fakeProbe(t, `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"}],"format":{"duration":"10"}}`, nil)

	extractor := New(cfg, store, logging.NewNop())
	err := extractor.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatal("audioless source should land in review")
	}
}

func TestExtractorPrepareMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, filepath.Join(testsupport.BaseDir(cfg), "missing.mp4"), "fp-missing")

	extractor := New(cfg, store, logging.NewNop())
	if err := extractor.Prepare(context.Background(), job); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
