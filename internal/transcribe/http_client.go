/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/bobbylabs/bobby-relay/internal/audio"
	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// HTTPTranscriber implements the Transcriber interface against any
// OpenAI-compatible speech-to-text REST service.
type HTTPTranscriber struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
}

// Response shape of /v1/audio/transcriptions with response_format=verbose_json
type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// NewHTTPTranscriber creates an HTTP STT client and verifies the service
// is reachable.
func NewHTTPTranscriber(baseURL string, opts Options) (*HTTPTranscriber, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("STT base URL is empty")
	}

	t := &HTTPTranscriber{
		baseURL: baseURL,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}

	if err := t.healthCheck(); err != nil {
		return nil, fmt.Errorf("STT service health check failed: %w", err)
	}

	logging.Sugar.Infow("Connected to STT REST service", "base_url", baseURL)

	return t, nil
}

// healthCheck verifies the service is running
func (t *HTTPTranscriber) healthCheck() error {
	resp, err := t.httpClient.Get(t.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to STT service at %s: %w", t.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close STT health response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("STT service health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// Transcribe implements the Transcriber interface
func (t *HTTPTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	wavData := audio.WriteWAV(samples, sampleRate)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	audioWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := audioWriter.Write(wavData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	_ = writer.WriteField("language", t.opts.Language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("condition_on_previous_text", "false")
	_ = writer.WriteField("vad_min_silence_ms", strconv.Itoa(t.opts.MinSilenceMS))
	_ = writer.WriteField("vad_speech_pad_ms", strconv.Itoa(t.opts.SpeechPadMS))
	_ = writer.WriteField("response_format", "verbose_json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	startTime := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close STT response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, Segment{
			Text:       seg.Text,
			Confidence: seg.AvgLogprob,
		})
	}

	// Services that omit segment detail still return the full text.
	if len(segments) == 0 && parsed.Text != "" {
		segments = append(segments, Segment{Text: parsed.Text})
	}

	logging.Sugar.Infow("Transcription completed",
		"processing_time_ms", time.Since(startTime).Milliseconds(),
		"segments", len(segments),
	)

	return segments, nil
}

// Close cleans up resources
func (t *HTTPTranscriber) Close() error {
	logging.Sugar.Infow("Closing STT client", "base_url", t.baseURL)
	return nil
}
