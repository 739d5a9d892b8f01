/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// Normalizer converts a session's raw capture into mono samples at the
// transcription engine's target rate.
type Normalizer interface {
	Normalize(ctx context.Context, s *Session) ([]float32, int, error)
}

// FFmpegNormalizer shells out to ffmpeg to resample and downmix the raw
// interleaved PCM capture, then decodes the resulting WAV.
type FFmpegNormalizer struct {
	bin           string
	inputRate     int
	inputChannels int
	targetRate    int
}

// NewFFmpegNormalizer creates a normalizer for the given capture format.
func NewFFmpegNormalizer(bin string, inputRate, inputChannels, targetRate int) *FFmpegNormalizer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegNormalizer{
		bin:           bin,
		inputRate:     inputRate,
		inputChannels: inputChannels,
		targetRate:    targetRate,
	}
}

// Normalize converts s.RawPath into s.WavPath (target rate, mono) and
// returns the decoded samples.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, s *Session) ([]float32, int, error) {
	args := []string{
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(n.inputRate),
		"-ac", strconv.Itoa(n.inputChannels),
		"-i", s.RawPath,
		"-ar", strconv.Itoa(n.targetRate),
		"-ac", "1",
		s.WavPath,
	}

	cmd := exec.CommandContext(ctx, n.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg conversion failed: %w: %s", err, stderr.String())
	}

	samples, rate, err := ReadWAV(s.WavPath)
	if err != nil {
		return nil, 0, err
	}

	if logging.Sugar != nil {
		logging.Sugar.Debugw("Audio normalized",
			"raw", s.RawPath,
			"samples", len(samples),
			"sample_rate", rate,
		)
	}

	return samples, rate, nil
}
