package stage

import (
	"context"
	"log/slog"

	"overdub/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets the workflow hand a stage a request-scoped logger right
// before Prepare runs.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
