// Package pipeline defines the artifact types the dubbing stages exchange
// and the per-job workspace layout they persist them in. Artifacts are
// written atomically so an interrupted job resumes from whatever its last
// completed stage recorded.
package pipeline
