package pipeline_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overdub/internal/pipeline"
)

func TestWorkspaceEnsureAndPaths(t *testing.T) {
	ws := pipeline.NewWorkspace(filepath.Join(t.TempDir(), "job-7"))
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	for _, dir := range []string{ws.Root, ws.ClipsDir(), ws.AlignedDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if got := filepath.Base(ws.ClipPath(3)); got != "seg-0003.wav" {
		t.Fatalf("unexpected clip name %s", got)
	}
	if !strings.HasPrefix(ws.AlignedClipPath(12), ws.AlignedDir()) {
		t.Fatal("aligned clip should live under aligned dir")
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	ws := pipeline.NewWorkspace(t.TempDir())
	segments := []pipeline.Segment{
		{ID: 0, Start: 0, End: 1.5, IsSpeech: true},
		{ID: 1, Start: 1.5, End: 2.0},
	}
	if err := pipeline.SaveSegments(ws, segments); err != nil {
		t.Fatalf("SaveSegments failed: %v", err)
	}
	loaded, err := pipeline.LoadSegments(ws)
	if err != nil {
		t.Fatalf("LoadSegments failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].End != 1.5 || !loaded[0].IsSpeech || loaded[1].IsSpeech {
		t.Fatalf("unexpected segments after round trip: %+v", loaded)
	}

	if _, err := os.Stat(ws.SegmentsPath() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp artifact should not remain after write")
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	ws := pipeline.NewWorkspace(t.TempDir())
	_, err := pipeline.LoadAligned(ws)
	if !errors.Is(err, pipeline.ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestSummaryWarnings(t *testing.T) {
	clean := pipeline.Summary{SegmentsTotal: 4}
	if clean.HasWarnings() {
		t.Fatal("clean summary should carry no warnings")
	}
	warned := pipeline.Summary{DriftWarnings: []int{3}}
	if !warned.HasWarnings() {
		t.Fatal("drift warning should surface")
	}
	failed := pipeline.Summary{FailedSegments: []int{1, 2}}
	if !failed.HasWarnings() {
		t.Fatal("failed segments should surface")
	}
}

func TestWriteJSONOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "artifact.json")
	if err := pipeline.WriteJSON(path, map[string]int{"v": 1}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := pipeline.WriteJSON(path, map[string]int{"v": 2}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	var out map[string]int
	if err := pipeline.ReadJSON(path, &out); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out["v"] != 2 {
		t.Fatalf("expected overwritten value 2, got %d", out["v"])
	}
}
