/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package transcribe

import "context"

// MockTranscriber is a canned Transcriber for tests and the "mock" STT mode.
type MockTranscriber struct {
	Segments []Segment
	Err      error

	// TranscribeFunc overrides the canned behavior when set.
	TranscribeFunc func(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error)
}

// Transcribe returns the canned segments or delegates to TranscribeFunc.
func (m *MockTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, samples, sampleRate)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Segments, nil
}

// Close is a no-op.
func (m *MockTranscriber) Close() error {
	return nil
}
