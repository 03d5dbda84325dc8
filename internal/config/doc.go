// Package config loads, normalizes, and validates Overdub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. The Config type centralizes every knob the workflow and CLI
// need, from segmentation thresholds and voice catalogs to alignment rate
// bounds and mux codecs, so they can be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical engine names, and clear validation errors.
package config
