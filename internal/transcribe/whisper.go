/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

//go:build whisper

package transcribe

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// WhisperTranscriber runs speech-to-text on an in-process whisper.cpp model.
// The model holds a single accelerator context and is not reentrant; the
// pipeline guard serializes all calls into Transcribe.
type WhisperTranscriber struct {
	model     whisper.Model
	modelPath string
	opts      Options
}

// NewWhisperTranscriber loads the whisper model from disk.
func NewWhisperTranscriber(modelPath string, opts Options) (*WhisperTranscriber, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logging.Sugar.Infow("✅ Whisper model loaded", "model_path", modelPath, "language", opts.Language)
	return &WhisperTranscriber{
		model:     model,
		modelPath: modelPath,
		opts:      opts,
	}, nil
}

// Transcribe converts audio samples to confidence-scored segments. A fresh
// decoding context is created per call, so no output conditions on prior
// requests.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error) {
	if wt.model == nil {
		return nil, fmt.Errorf("whisper model not initialized")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := wt.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	if wt.opts.Language != "" {
		if err := wctx.SetLanguage(wt.opts.Language); err != nil {
			return nil, fmt.Errorf("failed to set language %q: %w", wt.opts.Language, err)
		}
	}
	wctx.SetTranslate(false)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		segments = append(segments, Segment{
			Text:       strings.TrimSpace(seg.Text),
			Confidence: segmentConfidence(seg),
		})
	}

	return segments, nil
}

// segmentConfidence maps token probabilities onto the log-probability-like
// scale the confidence filter expects.
func segmentConfidence(seg whisper.Segment) float64 {
	if len(seg.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range seg.Tokens {
		sum += float64(tok.P)
	}
	mean := sum / float64(len(seg.Tokens))
	if mean <= 0 {
		return math.Inf(-1)
	}
	return math.Log(mean)
}

// Close releases the whisper model.
func (wt *WhisperTranscriber) Close() error {
	if wt.model != nil {
		if err := wt.model.Close(); err != nil {
			return err
		}
		logging.Sugar.Infow("🧠 Whisper model closed", "model_path", wt.modelPath)
	}
	return nil
}
