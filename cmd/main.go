/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bobbylabs/bobby-relay/internal/audio"
	"github.com/bobbylabs/bobby-relay/internal/config"
	"github.com/bobbylabs/bobby-relay/internal/dispatch"
	"github.com/bobbylabs/bobby-relay/internal/logging"
	"github.com/bobbylabs/bobby-relay/internal/messaging"
	"github.com/bobbylabs/bobby-relay/internal/metrics"
	"github.com/bobbylabs/bobby-relay/internal/pipeline"
	"github.com/bobbylabs/bobby-relay/internal/server"
	"github.com/bobbylabs/bobby-relay/internal/storage"
	"github.com/bobbylabs/bobby-relay/internal/transcribe"
	"github.com/bobbylabs/bobby-relay/internal/wake"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	logging.Sugar.Infow("🚀 bobby-relay starting",
		"http_port", cfg.Server.Port,
		"stt_mode", cfg.STT.Mode,
		"wake_word", cfg.Wake.Word,
		"db_path", cfg.Server.DBPath,
	)

	// The transcription engine loads before the HTTP server starts so
	// /health only reports ready once the model is usable.
	transcriber, err := newTranscriber(cfg)
	if err != nil {
		logging.LogError(err, "Failed to initialize transcription engine")
		log.Fatalf("Failed to initialize transcription engine: %v", err)
	}
	defer func() {
		if err := transcriber.Close(); err != nil {
			logging.LogError(err, "Failed to close transcription engine")
		}
	}()

	extractor, err := wake.NewExtractor(cfg.Wake.Word)
	if err != nil {
		log.Fatalf("Failed to configure wake word: %v", err)
	}
	gate := wake.NewGate(time.Duration(cfg.Wake.CooldownMS) * time.Millisecond)

	dispatcher := dispatch.New(dispatch.Config{
		URL:         cfg.LLM.URL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Stop:        cfg.LLM.Stop,
		Timeout:     time.Duration(cfg.LLM.TimeoutMS) * time.Millisecond,
		Fallback:    cfg.LLM.FallbackReply,
		Persona:     cfg.LLM.Persona,
	})

	var store *storage.VoiceEventsStore
	if cfg.Server.DBPath != "" {
		db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Server.DBPath})
		if err != nil {
			logging.LogError(err, "Failed to open voice events database")
			log.Fatalf("Failed to open voice events database: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.LogError(err, "Failed to close database")
			}
		}()
		store = storage.NewVoiceEventsStore(db)
	}

	var publisher *messaging.NATSService
	if cfg.NATS.URL != "" {
		publisher = messaging.NewNATSService(cfg.NATS.URL)
		reconnectWait := time.Duration(cfg.NATS.ReconnectWaitMS) * time.Millisecond
		if err := publisher.Connect(cfg.NATS.MaxReconnect, reconnectWait); err != nil {
			// Event publishing is best-effort; run without it.
			logging.LogError(err, "NATS unavailable, continuing without event publishing")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	relayMetrics := metrics.New(prometheus.DefaultRegisterer)

	pipe := pipeline.New(pipeline.Deps{
		Transcriber: transcriber,
		Normalizer: audio.NewFFmpegNormalizer(
			cfg.Audio.FFmpegPath,
			cfg.Audio.InputSampleRate,
			cfg.Audio.InputChannels,
			cfg.Audio.TargetRate,
		),
		Extractor:           extractor,
		Gate:                gate,
		Dispatcher:          dispatcher,
		Store:               store,
		Publisher:           publisher,
		Metrics:             relayMetrics,
		TempDir:             cfg.Audio.TempDir,
		MaxCaptureBytes:     cfg.Audio.MaxCaptureBytes,
		InputSampleRate:     cfg.Audio.InputSampleRate,
		InputChannels:       cfg.Audio.InputChannels,
		ConfidenceThreshold: cfg.STT.ConfidenceThreshold,
	})

	srv := server.New(cfg, pipe, store, prometheus.DefaultGatherer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Sugar.Infow("Received shutdown signal", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Graceful shutdown failed")
		}
	case err := <-errCh:
		if err != nil {
			logging.LogError(err, "HTTP server exited with error")
			os.Exit(1)
		}
	}
}

// newTranscriber builds the configured transcription engine.
func newTranscriber(cfg *config.Config) (transcribe.Transcriber, error) {
	opts := transcribe.Options{
		Language:     cfg.STT.Language,
		MinSilenceMS: cfg.STT.MinSilenceMS,
		SpeechPadMS:  cfg.STT.SpeechPadMS,
	}

	switch cfg.STT.Mode {
	case "whisper":
		return transcribe.NewWhisperTranscriber(cfg.STT.ModelPath, opts)
	case "http":
		return transcribe.NewHTTPTranscriber(cfg.STT.URL, opts)
	case "mock":
		return &transcribe.MockTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown STT mode: %q", cfg.STT.Mode)
	}
}
