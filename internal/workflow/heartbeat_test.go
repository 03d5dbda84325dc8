package workflow

import (
	"context"
	"testing"
	"time"

	"overdub/internal/logging"
	"overdub/internal/queue"
	"overdub/internal/testsupport"
)

func TestReclaimStaleJobsRollsBackToStageStart(t *testing.T) {
	_, store := newWorkflowFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-2 * time.Hour).UTC()
	job := testsupport.NewJob(t, store, "/videos/stale.mkv", "fp-stale")
	job.Status = queue.StatusSynthesizing
	job.LastHeartbeat = &past
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	monitor := NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Hour)
	if err := monitor.ReclaimStaleJobs(ctx, logging.NewNop(), []queue.Status{queue.StatusSynthesizing}); err != nil {
		t.Fatalf("ReclaimStaleJobs: %v", err)
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusSegmented {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusSegmented)
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after reclaim")
	}
}

func TestReclaimStaleJobsDisabledWithoutTimeout(t *testing.T) {
	_, store := newWorkflowFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-2 * time.Hour).UTC()
	job := testsupport.NewJob(t, store, "/videos/kept.mkv", "fp-kept")
	job.Status = queue.StatusSynthesizing
	job.LastHeartbeat = &past
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	monitor := NewHeartbeatMonitor(store, logging.NewNop(), time.Second, 0)
	if err := monitor.ReclaimStaleJobs(ctx, logging.NewNop(), []queue.Status{queue.StatusSynthesizing}); err != nil {
		t.Fatalf("ReclaimStaleJobs: %v", err)
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusSynthesizing {
		t.Fatalf("job should be untouched, got %s", updated.Status)
	}
}
