/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobbylabs/bobby-relay/internal/audio"
	"github.com/bobbylabs/bobby-relay/internal/dispatch"
	"github.com/bobbylabs/bobby-relay/internal/events"
	"github.com/bobbylabs/bobby-relay/internal/logging"
	"github.com/bobbylabs/bobby-relay/internal/messaging"
	"github.com/bobbylabs/bobby-relay/internal/metrics"
	"github.com/bobbylabs/bobby-relay/internal/storage"
	"github.com/bobbylabs/bobby-relay/internal/transcribe"
	"github.com/bobbylabs/bobby-relay/internal/wake"
)

// Result is the response shape for one session. Detected is always present;
// Error is set only when an internal stage failed before a detection
// decision could be made.
type Result struct {
	Text     string `json:"text"`
	Detected bool   `json:"detected"`
	Error    string `json:"error,omitempty"`
}

// Pipeline orchestrates one request's path from raw capture to reply.
//
// The transcription engine is a single shared, non-reentrant resource; mu
// serializes the transcription step together with the debounce decision so
// that "transcribe, then admit or suppress" is atomic across sessions.
// Ingestion and dispatch stay outside the guard and run concurrently.
type Pipeline struct {
	mu sync.Mutex // guards transcriber and gate

	transcriber transcribe.Transcriber
	normalizer  audio.Normalizer
	extractor   *wake.Extractor
	gate        *wake.Gate
	dispatcher  *dispatch.Dispatcher

	store     *storage.VoiceEventsStore // optional
	publisher *messaging.NATSService    // optional
	metrics   *metrics.Metrics          // optional

	tempDir             string
	maxCaptureBytes     int64
	inputSampleRate     int
	inputChannels       int
	confidenceThreshold float64
}

// Deps bundles the pipeline's collaborators and tunables.
type Deps struct {
	Transcriber transcribe.Transcriber
	Normalizer  audio.Normalizer
	Extractor   *wake.Extractor
	Gate        *wake.Gate
	Dispatcher  *dispatch.Dispatcher

	Store     *storage.VoiceEventsStore
	Publisher *messaging.NATSService
	Metrics   *metrics.Metrics

	TempDir             string
	MaxCaptureBytes     int64
	InputSampleRate     int
	InputChannels       int
	ConfidenceThreshold float64
}

// New creates a pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		transcriber:         deps.Transcriber,
		normalizer:          deps.Normalizer,
		extractor:           deps.Extractor,
		gate:                deps.Gate,
		dispatcher:          deps.Dispatcher,
		store:               deps.Store,
		publisher:           deps.Publisher,
		metrics:             deps.Metrics,
		tempDir:             deps.TempDir,
		maxCaptureBytes:     deps.MaxCaptureBytes,
		inputSampleRate:     deps.InputSampleRate,
		inputChannels:       deps.InputChannels,
		confidenceThreshold: deps.ConfidenceThreshold,
	}
}

// Process runs one complete session: ingest, normalize, transcribe under
// the exclusive guard, decide, dispatch. Every exit path releases the
// session's temporary files and records a voice event.
func (p *Pipeline) Process(ctx context.Context, userID string, body io.Reader) Result {
	requestID := uuid.NewString()
	event := events.New(userID, requestID)

	if p.metrics != nil {
		p.metrics.SessionsTotal.Inc()
		p.metrics.ActiveSessions.Inc()
		defer p.metrics.ActiveSessions.Dec()
	}

	sess := audio.NewSession(p.tempDir, userID, p.maxCaptureBytes)
	defer sess.Cleanup()

	if _, err := sess.Ingest(body); err != nil {
		return p.fail(event, "ingestion", err)
	}
	logging.LogSessionStage(requestID, "ingested",
		zap.String("user_id", userID),
		zap.Int64("bytes", sess.Size()),
	)

	samples, rate, err := p.normalizer.Normalize(ctx, sess)
	if err != nil {
		return p.fail(event, "conversion", err)
	}
	if rate > 0 {
		event.SetAudioMetadata(float64(len(samples))/float64(rate), rate)
	}

	utterance, command, detected, admitted, err := p.transcribeAndGate(ctx, samples, rate)
	if err != nil {
		return p.fail(event, "transcription", err)
	}
	event.SetTranscription(utterance)
	event.SetDetection(detected, detected && !admitted, command)

	logging.LogSessionStage(requestID, "decided",
		zap.String("utterance", utterance),
		zap.Bool("detected", detected),
		zap.Bool("admitted", admitted),
	)

	if !detected {
		event.SetResponse("")
		p.record(event)
		return Result{Text: "", Detected: false}
	}

	if !admitted {
		// Suppressed activations look exactly like non-detections.
		if p.metrics != nil {
			p.metrics.WakeSuppressions.Inc()
		}
		event.SetResponse("")
		p.record(event)
		return Result{Text: "", Detected: false}
	}

	if p.metrics != nil {
		p.metrics.WakeDetections.Inc()
	}
	p.publishCommand(event, command)

	dispatchStart := time.Now()
	reply, ok := p.dispatcher.Dispatch(ctx, command)
	if p.metrics != nil {
		p.metrics.DispatchDuration.Observe(time.Since(dispatchStart).Seconds())
		if !ok {
			p.metrics.DispatchFallbacks.Inc()
		}
	}

	event.SetResponse(reply)
	p.record(event)
	p.publishResponse(event, reply, !ok)

	logging.LogSessionStage(requestID, "dispatched",
		zap.Bool("fallback", !ok),
		zap.Int("reply_length", len(reply)),
	)

	return Result{Text: reply, Detected: true}
}

// transcribeAndGate runs the exclusive-resource section: engine invocation,
// confidence filtering, wake-word extraction, and the debounce decision.
func (p *Pipeline) transcribeAndGate(ctx context.Context, samples []float32, rate int) (utterance, command string, detected, admitted bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	segments, err := p.transcriber.Transcribe(ctx, samples, rate)
	if p.metrics != nil {
		p.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", "", false, false, fmt.Errorf("transcription failed: %w", err)
	}

	utterance = transcribe.FilterSegments(segments, p.confidenceThreshold)
	detected, command = p.extractor.Extract(utterance)
	if !detected {
		return utterance, "", false, false, nil
	}

	admitted = p.gate.Admit()
	return utterance, command, true, admitted, nil
}

// fail converts a stage error into the terminal error result.
func (p *Pipeline) fail(event *events.VoiceEvent, stage string, err error) Result {
	if p.metrics != nil {
		p.metrics.SessionErrors.WithLabelValues(stage).Inc()
	}

	stageErr := fmt.Errorf("%s: %w", stage, err)
	event.SetError(stageErr)
	p.record(event)

	logging.LogError(stageErr, "Session failed",
		zap.String("request_id", event.RequestID),
		zap.String("stage", stage),
	)

	return Result{Text: "", Detected: false, Error: stageErr.Error()}
}

// record persists the voice event; persistence failures never fail the
// session.
func (p *Pipeline) record(event *events.VoiceEvent) {
	if p.store == nil {
		return
	}
	if err := p.store.Insert(event); err != nil {
		logging.LogError(err, "Failed to store voice event",
			zap.String("uuid", event.UUID),
		)
	}
}

// publishCommand emits the admitted command for downstream consumers.
func (p *Pipeline) publishCommand(event *events.VoiceEvent, command string) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.PublishCommand(&messaging.CommandEvent{
		RequestID:     event.RequestID,
		UserID:        event.UserID,
		Transcription: event.Transcription,
		Command:       command,
		Timestamp:     time.Now().UnixMilli(),
	})
	if err != nil {
		logging.LogError(err, "Failed to publish command event")
	}
}

// publishResponse emits the reply for downstream consumers.
func (p *Pipeline) publishResponse(event *events.VoiceEvent, reply string, fallback bool) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.PublishResponse(&messaging.ResponseEvent{
		RequestID:    event.RequestID,
		UserID:       event.UserID,
		ResponseText: reply,
		Fallback:     fallback,
		Timestamp:    time.Now().UnixMilli(),
	})
	if err != nil {
		logging.LogError(err, "Failed to publish response event")
	}
}
