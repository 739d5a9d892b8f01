/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bobbylabs/bobby-relay/internal/api"
	"github.com/bobbylabs/bobby-relay/internal/config"
	"github.com/bobbylabs/bobby-relay/internal/logging"
	"github.com/bobbylabs/bobby-relay/internal/pipeline"
	"github.com/bobbylabs/bobby-relay/internal/storage"
)

// Processor runs one complete voice session.
type Processor interface {
	Process(ctx context.Context, userID string, body io.Reader) pipeline.Result
}

// Server is the HTTP boundary of the relay: one streamed ingestion
// endpoint, liveness, metrics, and the voice-events API.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	processor Processor
	eventsAPI *api.VoiceEventsHandler
	gatherer  prometheus.Gatherer

	startedAt time.Time
}

// New creates a server. The transcription engine is loaded before the
// server is constructed, so /health reporting ready implies the engine is
// up. eventsStore and gatherer may be nil.
func New(cfg *config.Config, processor Processor, eventsStore *storage.VoiceEventsStore, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		cfg:       cfg,
		mux:       mux,
		processor: processor,
		gatherer:  gatherer,
		startedAt: time.Now(),
	}

	if eventsStore != nil {
		s.eventsAPI = api.NewVoiceEventsHandler(eventsStore)
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()

	return s
}

// routes sets up HTTP routing
func (s *Server) routes() {
	s.mux.HandleFunc("/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("/health", s.handleHealth)

	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	if s.eventsAPI != nil {
		s.mux.HandleFunc("/api/voice-events", s.eventsAPI.HandleVoiceEvents)
		s.mux.HandleFunc("/api/voice-events/", s.eventsAPI.HandleVoiceEventByID)
	}

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"transcribe_endpoint", "/transcribe",
		"health_endpoint", "/health",
	)
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 bobby-relay listening",
		"addr", s.server.Addr,
		"stt_mode", s.cfg.STT.Mode,
		"wake_word", s.cfg.Wake.Word,
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down bobby-relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.Sugar.Infow("✅ bobby-relay shut down successfully")
	return nil
}

// handleTranscribe ingests one streamed utterance and runs the pipeline.
// All pipeline outcomes, including internal stage failures, are reported
// in-band with HTTP 200.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = "unknown"
	}

	result := s.processor.Process(r.Context(), userID, r.Body)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logging.LogError(err, "Failed to encode transcribe response",
			zap.String("user_id", userID),
		)
	}
}

// handleHealth reports readiness. The engine is loaded before the server
// starts, so reaching this handler means the model is ready to transcribe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "ready",
		"stt_mode":       s.cfg.STT.Mode,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.LogError(err, "Failed to encode health response")
	}
}
