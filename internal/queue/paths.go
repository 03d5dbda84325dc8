package queue

import (
	"fmt"
	"path/filepath"
	"strings"
)

// WorkspaceRoot returns the per-job working directory rooted at base. Job
// artifacts (extracted audio, segment manifests, synthesized clips) live
// under this directory so a retried job can resume from what survived.
func (j Job) WorkspaceRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return filepath.Join(base, "jobs", fmt.Sprintf("job-%d", j.ID))
}

// WorkspaceSegment returns the directory name a job's workspace uses under
// the jobs root. Staging cleanup matches directories against this pattern.
func WorkspaceSegment(id int64) string {
	return fmt.Sprintf("job-%d", id)
}
