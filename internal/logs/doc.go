// Package logs provides file tailing and offset helpers for run logs.
//
// It streams log files with bounded memory usage, supports negative offsets
// for "tail last N lines" operations, and powers follow-mode updates for
// `overdub logs --follow`. Callers supply context deadlines so polling shuts
// down cleanly when the CLI exits.
package logs
