package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a dubbing job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusExtracted    Status = "extracted"
	StatusSegmenting   Status = "segmenting"
	StatusSegmented    Status = "segmented"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusAligning     Status = "aligning"
	StatusAligned      Status = "aligned"
	StatusAssembling   Status = "assembling"
	StatusAssembled    Status = "assembled"
	StatusMuxing       Status = "muxing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

// UserStopReason is the review reason set when a user explicitly stops a job.
const UserStopReason = "Stop requested by user"

// ShutdownStopReason is the error message set when jobs are interrupted by workflow shutdown.
const ShutdownStopReason = "Workflow stopped"

var allStatuses = []Status{
	StatusPending,
	StatusExtracting,
	StatusExtracted,
	StatusSegmenting,
	StatusSegmented,
	StatusSynthesizing,
	StatusSynthesized,
	StatusAligning,
	StatusAligned,
	StatusAssembling,
	StatusAssembled,
	StatusMuxing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusExtracting:   {},
	StatusSegmenting:   {},
	StatusSynthesizing: {},
	StatusAligning:     {},
	StatusAssembling:   {},
	StatusMuxing:       {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusExtracting, to: StatusPending},
	{from: StatusSegmenting, to: StatusExtracted},
	{from: StatusSynthesizing, to: StatusSegmented},
	{from: StatusAligning, to: StatusSynthesized},
	{from: StatusAssembling, to: StatusAligned},
	{from: StatusMuxing, to: StatusAssembled},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Job represents a dubbing job persisted in SQLite.
type Job struct {
	ID                int64
	SourcePath        string
	SourceFingerprint string
	Title             string
	SourceLanguage    string
	TargetLanguage    string
	Status            Status
	AudioFile         string
	DubbedAudioFile   string
	SubtitleFile      string
	FinalFile         string
	JobLogPath        string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	SegmentsTotal     int
	SegmentsCompleted int
	SegmentsFailed    int
	DriftWarnings     int
	MetadataJSON      string
	LastHeartbeat     *time.Time
	NeedsReview       bool
	ReviewReason      string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the status ends the workflow for a job.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
// ProgressMessage is set to message, ProgressPercent is reset to 0,
// and ErrorMessage is cleared.
func (j *Job) InitProgress(stage, message string) {
	if j.ProgressStage == "" {
		j.ProgressStage = stage
	}
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
// Use this instead of setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
// Convenience method for stage completion.
func (j *Job) SetProgressComplete(stage, message string) {
	j.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}

// SetReview marks the job for manual review with the given reason.
func (j *Job) SetReview(reason string) {
	j.Status = StatusReview
	j.NeedsReview = true
	j.ReviewReason = reason
	j.ProgressMessage = reason
	j.LastHeartbeat = nil
	j.ProgressStage = "Review"
}

// IsInWorkflow returns true when a job is actively progressing (or queued to
// progress) through stages and should not be reset by a duplicate enqueue of
// the same source file.
func (j Job) IsInWorkflow() bool {
	if j.IsProcessing() {
		return true
	}
	switch j.Status {
	case StatusExtracted,
		StatusSegmented,
		StatusSynthesized,
		StatusAligned,
		StatusAssembled,
		StatusCompleted:
		return true
	default:
		return false
	}
}

// StageKey returns the normalized stage identifier used in CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "planned"
	case StatusCompleted:
		return "final"
	case StatusExtracting,
		StatusExtracted,
		StatusSegmenting,
		StatusSegmented,
		StatusSynthesizing,
		StatusSynthesized,
		StatusAligning,
		StatusAligned,
		StatusAssembling,
		StatusAssembled,
		StatusMuxing,
		StatusFailed,
		StatusReview:
		return string(s)
	default:
		return ""
	}
}

// ProcessingLane partitions workflow into source preparation and dub production.
type ProcessingLane string

const (
	LanePrepare ProcessingLane = "prepare"
	LaneDub     ProcessingLane = "dub"
)

// LaneForJob maps a job to its processing lane for observability purposes.
func LaneForJob(job *Job) ProcessingLane {
	if job == nil {
		return LanePrepare
	}
	switch job.Status {
	case StatusPending, StatusExtracting, StatusExtracted, StatusSegmenting:
		return LanePrepare
	case StatusSegmented, StatusSynthesizing, StatusSynthesized, StatusAligning, StatusAligned, StatusAssembling, StatusAssembled, StatusMuxing, StatusCompleted:
		return LaneDub
	case StatusFailed, StatusReview:
		if job.SegmentsTotal > 0 {
			return LaneDub
		}
		return LanePrepare
	default:
		return LanePrepare
	}
}
