package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"overdub/internal/logging"
)

func writeWorkspace(t *testing.T, root, name string, size int) string {
	t.Helper()
	dir := filepath.Join(root, "jobs", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "source.wav"), make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCleanOrphanedRemovesUnknownJobDirs(t *testing.T) {
	base := t.TempDir()
	live := writeWorkspace(t, base, "job-1", 10)
	orphan := writeWorkspace(t, base, "job-2", 10)
	unrelated := writeWorkspace(t, base, "scratch", 10)

	result := CleanOrphaned(context.Background(), base, map[int64]struct{}{1: {}}, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("removed = %v, want [%s]", result.Removed, orphan)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("live workspace removed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("non-workspace directory removed: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("orphan workspace still present")
	}
}

func TestCleanOrphanedMissingRootIsQuiet(t *testing.T) {
	result := CleanOrphaned(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, logging.NewNop())
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestDiskUsageSumsWorkspaces(t *testing.T) {
	base := t.TempDir()
	writeWorkspace(t, base, "job-1", 100)
	writeWorkspace(t, base, "job-2", 150)

	total, err := DiskUsage(base)
	if err != nil {
		t.Fatalf("DiskUsage: %v", err)
	}
	if total != 250 {
		t.Fatalf("total = %d, want 250", total)
	}
}

func TestWorkspaceJobID(t *testing.T) {
	cases := map[string]struct {
		id int64
		ok bool
	}{
		"job-12":  {12, true},
		"job-0":   {0, false},
		"job-abc": {0, false},
		"movie":   {0, false},
	}
	for name, want := range cases {
		id, ok := workspaceJobID(name)
		if id != want.id || ok != want.ok {
			t.Fatalf("workspaceJobID(%q) = (%d, %v), want (%d, %v)", name, id, ok, want.id, want.ok)
		}
	}
}
