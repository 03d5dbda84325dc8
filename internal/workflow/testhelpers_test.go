package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/notifications"
	"overdub/internal/queue"
	"overdub/internal/stage"
	"overdub/internal/testsupport"
)

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) recorded() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingNotifier) count(event notifications.Event) int {
	total := 0
	for _, rec := range r.recorded() {
		if rec.event == event {
			total++
		}
	}
	return total
}

// callLog records stage executions across both lanes so tests can assert
// ordering for a single job.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	c.entries = append(c.entries, name)
	c.mu.Unlock()
}

func (c *callLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

type fakeStage struct {
	name       string
	log        *callLog
	prepareErr error
	executeErr error
}

func (f *fakeStage) Prepare(ctx context.Context, job *queue.Job) error {
	return f.prepareErr
}

func (f *fakeStage) Execute(ctx context.Context, job *queue.Job) error {
	if f.executeErr != nil {
		return f.executeErr
	}
	if f.log != nil {
		f.log.add(f.name)
	}
	return nil
}

func (f *fakeStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeStage) SetLogger(*slog.Logger) {}

func fakeStageSet(log *callLog) StageSet {
	return StageSet{
		Extraction:   &fakeStage{name: "extraction", log: log},
		Segmentation: &fakeStage{name: "segmentation", log: log},
		Dubbing:      &fakeStage{name: "dubbing", log: log},
		Alignment:    &fakeStage{name: "alignment", log: log},
		Assembly:     &fakeStage{name: "assembly", log: log},
		Mux:          &fakeStage{name: "mux", log: log},
	}
}

func newTestManager(t *testing.T, cfg *config.Config, store *queue.Store, notifier notifications.Service) *Manager {
	t.Helper()
	mgr := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.pollInterval = 10 * time.Millisecond
	return mgr
}

func waitForStatus(t *testing.T, store *queue.Store, jobID int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), jobID)
	t.Fatalf("job %d never reached %s (last status %s, error %q)", jobID, want, job.Status, job.ErrorMessage)
	return nil
}

func newWorkflowFixture(t *testing.T) (*config.Config, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return cfg, store
}
