//go:build !cgo

package vad

import (
	"errors"

	"overdub/internal/config"
)

func newSilero(config.VAD, int) (Detector, error) {
	return nil, errors.New("silero vad unavailable (cgo disabled)")
}
