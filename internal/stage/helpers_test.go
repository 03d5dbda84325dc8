package stage

import (
	"errors"
	"fmt"
	"testing"

	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
)

func TestRequireArtifactNil(t *testing.T) {
	if err := RequireArtifact(nil, "alignment", "clips"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequireArtifactMissingMapsToValidation(t *testing.T) {
	err := RequireArtifact(fmt.Errorf("clips.json: %w", pipeline.ErrArtifactMissing), "alignment", "clips")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatalf("expected review status for missing artifact")
	}
}
