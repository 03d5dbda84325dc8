package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintChunk bounds how much of a media file is read per end when
// deriving its identity.
const fingerprintChunk = 1 << 20

// Fingerprint derives a stable identity for a media file without reading the
// whole thing: the file size plus a SHA256 over the first and last chunk.
// Files smaller than two chunks are hashed in full.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for fingerprint: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat for fingerprint: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("fingerprint target %s is a directory", path)
	}

	hasher := sha256.New()
	fmt.Fprintf(hasher, "%d:", info.Size())

	if info.Size() <= 2*fingerprintChunk {
		if _, err := io.Copy(hasher, f); err != nil {
			return "", fmt.Errorf("hash file: %w", err)
		}
	} else {
		if _, err := io.CopyN(hasher, f, fingerprintChunk); err != nil {
			return "", fmt.Errorf("hash head: %w", err)
		}
		if _, err := f.Seek(-fingerprintChunk, io.SeekEnd); err != nil {
			return "", fmt.Errorf("seek tail: %w", err)
		}
		if _, err := io.CopyN(hasher, f, fingerprintChunk); err != nil {
			return "", fmt.Errorf("hash tail: %w", err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
