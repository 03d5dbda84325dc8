// Package main hosts the overdub CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot dubbing runs, the queue
// serving loop, queue maintenance, status reporting, log tailing, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
