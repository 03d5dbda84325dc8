// Package workflow advances queue jobs through the configured dubbing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and
// feeds jobs into registered stage handlers (extraction, segmentation,
// dubbing, alignment, assembly, mux) while capturing progress and failure
// metadata. It also aggregates queue stats, calls stage health checks, and
// emits queue-level notifications when processing starts or completes.
//
// The workflow runs two independent lanes: prepare (extraction,
// segmentation) and dub (synthesis, alignment, assembly, mux). Each lane
// polls for jobs matching its statuses and processes them independently,
// so job B can be segmented while job A synthesizes.
//
// Add new lifecycle stages by extending StageSet, updating the queue
// status enums, and teaching the manager how to transition jobs; this
// package is the authoritative home for that coordination logic.
package workflow
