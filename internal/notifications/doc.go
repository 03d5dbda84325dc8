// Package notifications publishes job lifecycle events to an ntfy topic.
//
// The workflow and CLI publish typed events with loose payloads; this
// package renders them into push messages and applies the per-event enable
// flags from configuration. Without a configured topic every publish is a
// no-op, so callers never guard their notification calls.
package notifications
