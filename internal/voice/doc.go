// Package voice maps speaker profiles to concrete synthesis voices:
// per-language gender catalogs for the edge and openai engines, a default
// fallback for unknown speakers, prosody offsets for confidently profiled
// speakers, and the register labels (bass through soprano) recorded on
// profiles.
package voice
