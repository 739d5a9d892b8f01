/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package transcribe

import "context"

// Segment is one timed chunk of engine output. Confidence is on the
// engine's log-probability-like scale; higher means more certain.
type Segment struct {
	Text       string
	Confidence float64
}

// Options holds fixed decoding parameters passed through to the engine.
type Options struct {
	Language     string
	MinSilenceMS int
	SpeechPadMS  int
}

// Transcriber defines the interface for speech-to-text engines. Callers are
// responsible for serializing access: implementations are not required to
// be safe for concurrent use.
type Transcriber interface {
	// Transcribe converts normalized mono audio samples to ordered,
	// confidence-scored segments.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error)

	// Close cleans up engine resources
	Close() error
}
