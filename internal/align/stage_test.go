package align

import (
	"context"
	"errors"
	"os"
	"testing"

	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
	"overdub/internal/testsupport"
)

func TestStageExecuteRendersAlignedClips(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubBinary("ffmpeg", "#!/bin/sh\nfor last; do :; done\nprintf stretched > \"$last\"\n"),
	)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-align")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	segments := []pipeline.Segment{
		{ID: 0, Start: 0, End: 1, IsSpeech: false},
		{ID: 1, Start: 1, End: 3, IsSpeech: true},
		{ID: 2, Start: 3, End: 5, IsSpeech: false},
		{ID: 3, Start: 5, End: 7, IsSpeech: true},
		{ID: 4, Start: 7, End: 8, IsSpeech: false},
	}
	if err := pipeline.SaveSegments(ws, segments); err != nil {
		t.Fatal(err)
	}
	profiles := []pipeline.Profile{
		{SegmentID: 1, Gender: pipeline.GenderMale, PitchHz: 120, Confidence: 0.9},
		{SegmentID: 3, Gender: pipeline.GenderFemale, PitchHz: 210, Confidence: 0.9},
	}
	if err := pipeline.SaveProfiles(ws, profiles); err != nil {
		t.Fatal(err)
	}
	// Segment 1 fits exactly (rate 1, plain copy); segment 3 needs 1.25x.
	for _, id := range []int{1, 3} {
		if err := os.WriteFile(ws.ClipPath(id), []byte("clip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	clips := []pipeline.Clip{
		{SegmentID: 1, Path: ws.ClipPath(1), Duration: 2.0, SampleRate: cfg.Audio.OutputSampleRate},
		{SegmentID: 3, Path: ws.ClipPath(3), Duration: 2.5, SampleRate: cfg.Audio.OutputSampleRate},
	}
	if err := pipeline.SaveClips(ws, clips); err != nil {
		t.Fatal(err)
	}

	handler := NewStage(cfg, store, logging.NewNop())
	ctx := context.Background()
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	aligned, err := pipeline.LoadAligned(ws)
	if err != nil {
		t.Fatalf("LoadAligned: %v", err)
	}
	if len(aligned) != 2 {
		t.Fatalf("aligned = %d, want 2", len(aligned))
	}
	for _, record := range aligned {
		if record.Path != ws.AlignedClipPath(record.SegmentID) {
			t.Fatalf("record path = %q, want aligned artifact", record.Path)
		}
		data, err := os.ReadFile(record.Path)
		if err != nil {
			t.Fatalf("aligned clip missing: %v", err)
		}
		switch record.SegmentID {
		case 1:
			if record.AppliedRate != 1 {
				t.Fatalf("segment 1 rate = %v, want 1", record.AppliedRate)
			}
			if string(data) != "clip" {
				t.Fatal("rate-1 clip should be copied verbatim")
			}
		case 3:
			if record.AppliedRate != 1.25 {
				t.Fatalf("segment 3 rate = %v, want 1.25", record.AppliedRate)
			}
			if string(data) != "stretched" {
				t.Fatal("stretched clip should come from ffmpeg")
			}
		}
	}
	if job.DriftWarnings != 0 {
		t.Fatalf("DriftWarnings = %d, want 0", job.DriftWarnings)
	}
}

func TestStageExecutePersistsPartialPlanOnSyncError(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubBinary("ffmpeg", "#!/bin/sh\nfor last; do :; done\n: > \"$last\"\n"),
	)
	cfg.Alignment.MaxRate = 1.0
	cfg.Alignment.DriftToleranceSec = 0.5
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-sync")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	if err := ws.Ensure(); err != nil {
		t.Fatal(err)
	}
	segments := []pipeline.Segment{
		{ID: 0, Start: 0, End: 2, IsSpeech: true},
		{ID: 1, Start: 2, End: 4, IsSpeech: true},
	}
	if err := pipeline.SaveSegments(ws, segments); err != nil {
		t.Fatal(err)
	}
	profiles := []pipeline.Profile{
		{SegmentID: 0, Gender: pipeline.GenderMale, PitchHz: 120, Confidence: 1.0},
		{SegmentID: 1, Gender: pipeline.GenderMale, PitchHz: 120, Confidence: 1.0},
	}
	if err := pipeline.SaveProfiles(ws, profiles); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{0, 1} {
		if err := os.WriteFile(ws.ClipPath(id), []byte("clip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Clip 0 runs 2s past a slot with no silence budget: unabsorbable drift.
	clips := []pipeline.Clip{
		{SegmentID: 0, Path: ws.ClipPath(0), Duration: 4.0},
		{SegmentID: 1, Path: ws.ClipPath(1), Duration: 2.0},
	}
	if err := pipeline.SaveClips(ws, clips); err != nil {
		t.Fatal(err)
	}

	handler := NewStage(cfg, store, logging.NewNop())
	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	// The partial plan must still be on disk.
	if _, err := pipeline.LoadAligned(ws); err != nil {
		t.Fatalf("partial aligned manifest missing: %v", err)
	}
}
