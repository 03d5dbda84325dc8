package services

import (
	"errors"
	"fmt"
	"strings"

	"overdub/internal/queue"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrSegmentation  = errors.New("segmentation error")
	ErrTranscription = errors.New("transcription error")
	ErrTranslation   = errors.New("translation error")
	ErrSynthesis     = errors.New("synthesis error")
	ErrSync          = errors.New("sync tolerance exceeded")
	ErrMux           = errors.New("mux error")
)

// Wrap builds an error that carries stage context while tagging it with the
// provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &stageError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails. Errors a retry cannot clear without
// operator input land in review; everything else is failed.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusReview
	default:
		return queue.StatusFailed
	}
}

// IsRetryable reports whether a later attempt could plausibly clear the error.
// Provider-facing failures (transcription, translation, synthesis) and
// transient or timeout conditions qualify; structural failures do not.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrTranscription),
		errors.Is(err, ErrTranslation),
		errors.Is(err, ErrSynthesis),
		errors.Is(err, ErrTransient),
		errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

// ErrorDetails describes a stage failure for logging and notifications.
type ErrorDetails struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure context from err. Errors that did not
// pass through Wrap yield only the flattened message.
func Details(err error) ErrorDetails {
	var se *stageError
	if errors.As(err, &se) {
		return ErrorDetails{
			Marker:    se.marker,
			Stage:     se.stage,
			Operation: se.operation,
			Message:   se.message,
			Cause:     se.cause,
		}
	}
	details := ErrorDetails{Cause: err}
	if err != nil {
		details.Message = strings.TrimSpace(err.Error())
	}
	return details
}

type stageError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *stageError) Error() string {
	detail := e.detail()
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker, detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker, detail)
}

func (e *stageError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

func (e *stageError) detail() string {
	parts := make([]string, 0, 3)
	if e.stage != "" {
		parts = append(parts, e.stage)
	}
	if e.operation != "" {
		parts = append(parts, e.operation)
	}
	if e.message != "" {
		parts = append(parts, e.message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
