package stage

import (
	"errors"
	"fmt"

	"overdub/internal/pipeline"
	"overdub/internal/services"
)

// RequireArtifact normalizes artifact load failures for stage Execute
// methods. A missing artifact means an upstream stage did not finish, which
// is a validation failure the operator resolves by resetting the job; any
// other read error passes through wrapped with the same stage context.
func RequireArtifact(err error, stageName, artifact string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pipeline.ErrArtifactMissing) {
		return services.Wrap(services.ErrValidation, stageName, "load "+artifact,
			fmt.Sprintf("%s artifact missing; rerun the preceding stage", artifact), err)
	}
	return services.Wrap(services.ErrValidation, stageName, "load "+artifact,
		fmt.Sprintf("%s artifact unreadable", artifact), err)
}
