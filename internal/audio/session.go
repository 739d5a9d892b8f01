/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobbylabs/bobby-relay/internal/logging"
	"go.uber.org/zap"
)

// Session owns the on-disk capture state for a single request. The raw
// buffer and its normalized counterpart are backed by uniquely named temp
// files so ffmpeg can operate on them; Cleanup must run on every exit path.
type Session struct {
	UserID     string
	CapturedAt time.Time
	RawPath    string
	WavPath    string

	maxBytes int64
	size     int64
}

// NewSession creates per-request capture state. Backing file names are keyed
// by requester identifier and capture timestamp. maxBytes of zero disables
// the ingestion cap.
func NewSession(tempDir, userID string, maxBytes int64) *Session {
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	capturedAt := time.Now()
	base := fmt.Sprintf("audio_%s_%d", sanitizeID(userID), capturedAt.UnixNano())
	rawPath := filepath.Join(tempDir, base+".raw")

	return &Session{
		UserID:     userID,
		CapturedAt: capturedAt,
		RawPath:    rawPath,
		WavPath:    rawPath + ".wav",
		maxBytes:   maxBytes,
	}
}

// Ingest appends the streamed byte body to the raw backing file in arrival
// order until EOF. A mid-stream read failure (client disconnect included)
// aborts the session.
func (s *Session) Ingest(r io.Reader) (int64, error) {
	f, err := os.Create(s.RawPath)
	if err != nil {
		return 0, fmt.Errorf("create capture file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.LogWarn("Failed to close capture file", zap.String("path", s.RawPath), zap.Error(err))
		}
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	s.size = n
	if err != nil {
		return n, fmt.Errorf("read audio stream: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return n, fmt.Errorf("capture exceeds %d bytes", s.maxBytes)
	}

	return n, nil
}

// Size returns the number of raw bytes ingested so far.
func (s *Session) Size() int64 {
	return s.size
}

// Duration estimates the capture length in seconds for 16-bit interleaved
// PCM at the given input format.
func (s *Session) Duration(sampleRate, channels int) float64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return float64(s.size) / float64(2*channels) / float64(sampleRate)
}

// Cleanup removes all backing files for this session. It is safe to call
// multiple times and before Ingest ever ran.
func (s *Session) Cleanup() {
	for _, path := range []string{s.RawPath, s.WavPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.LogWarn("Failed to remove session file", zap.String("path", path), zap.Error(err))
		}
	}
}

// sanitizeID keeps requester identifiers filesystem-safe
func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
