// Package subtitles builds target-language SRT files from the translation
// and alignment manifests.
//
// Cue timestamps come straight from the aligned clips so the text appears
// exactly while the dubbed speech plays. Generation wraps and splits lines
// to the configured limits; validation flags cue-duration and bounds
// problems as warnings without rejecting the file.
package subtitles
