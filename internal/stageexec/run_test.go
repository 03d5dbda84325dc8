package stageexec

import (
	"context"
	"errors"
	"testing"

	"overdub/internal/logging"
	"overdub/internal/notifications"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/testsupport"
)

type fakeHandler struct {
	prepareErr error
	executeErr error
	executed   bool
}

func (f *fakeHandler) Prepare(ctx context.Context, job *queue.Job) error { return f.prepareErr }

func (f *fakeHandler) Execute(ctx context.Context, job *queue.Job) error {
	f.executed = true
	return f.executeErr
}

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, event)
	return nil
}

func TestRunTransitionsToDoneStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-run")

	err := Run(context.Background(), Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    &fakeHandler{},
		StageName:  "extraction",
		Processing: queue.StatusExtracting,
		Done:       queue.StatusExtracted,
		Job:        job,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != queue.StatusExtracted {
		t.Fatalf("status = %v, want extracted", job.Status)
	}
	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != queue.StatusExtracted {
		t.Fatalf("persisted status = %v", stored.Status)
	}
}

func TestRunFailureMarksJobFailedAndNotifies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-runfail")
	notifier := &recordingNotifier{}

	stageErr := services.Wrap(services.ErrExternalTool, "extraction", "probe", "ffprobe crashed", errors.New("exit 1"))
	err := Run(context.Background(), Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Notifier:   notifier,
		Handler:    &fakeHandler{executeErr: stageErr},
		StageName:  "extraction",
		Processing: queue.StatusExtracting,
		Done:       queue.StatusExtracted,
		Job:        job,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Run error = %v", err)
	}
	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %v, want failed", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventJobFailed {
		t.Fatalf("events = %v", notifier.events)
	}
}

func TestRunValidationFailureRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "/tmp/source.mp4", "fp-review")
	notifier := &recordingNotifier{}

	stageErr := services.Wrap(services.ErrValidation, "extraction", "probe", "no audio stream", nil)
	handler := &fakeHandler{prepareErr: stageErr}
	err := Run(context.Background(), Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Notifier:   notifier,
		Handler:    handler,
		StageName:  "extraction",
		Processing: queue.StatusExtracting,
		Done:       queue.StatusExtracted,
		Job:        job,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if handler.executed {
		t.Fatal("Execute must not run after Prepare fails")
	}
	if job.Status != queue.StatusReview {
		t.Fatalf("status = %v, want review", job.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventJobReview {
		t.Fatalf("events = %v", notifier.events)
	}
}
