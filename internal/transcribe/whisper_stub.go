/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

//go:build !whisper

package transcribe

import (
	"context"
	"fmt"
)

// WhisperTranscriber stub implementation when whisper is disabled
type WhisperTranscriber struct {
	modelPath string
}

// NewWhisperTranscriber creates a stub transcriber when whisper is disabled
func NewWhisperTranscriber(modelPath string, opts Options) (*WhisperTranscriber, error) {
	return &WhisperTranscriber{
		modelPath: modelPath,
	}, nil
}

// Transcribe stub implementation always fails
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error) {
	return nil, fmt.Errorf("whisper transcription disabled (build with -tags whisper to enable)")
}

// Close stub implementation
func (wt *WhisperTranscriber) Close() error {
	return nil
}
