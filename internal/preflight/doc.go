// Package preflight provides readiness checks for the binaries,
// directories, and credentials a dubbing run depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before starting its lanes. If any
//     check fails, the daemon refuses to start rather than burn provider
//     credits on a doomed run.
//   - The CLI "overdub status" command renders the same results so an
//     operator can see what is missing before queueing work.
package preflight
