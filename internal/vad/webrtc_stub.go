//go:build !cgo

package vad

import (
	"errors"

	"overdub/internal/config"
)

func newWebRTC(config.VAD, int) (Detector, error) {
	return nil, errors.New("webrtc vad unavailable (cgo disabled)")
}
