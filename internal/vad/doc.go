// Package vad locates speech in mono PCM audio. Three backends implement the
// same Detector surface: a pure-Go adaptive energy gate, WebRTC VAD, and the
// Silero ONNX model. The cgo backends degrade to construction errors when
// cgo is disabled so the energy fallback keeps the pipeline usable.
package vad
