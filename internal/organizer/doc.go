// Package organizer moves finished dub outputs into the configured output
// directory. It derives collision-safe names from the job title and target
// language and places the subtitle sidecar next to the video.
package organizer
