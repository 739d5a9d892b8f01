/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// Dispatcher forwards admitted commands to the generation backend and
// shapes a reply. It never surfaces an error: when the backend fails the
// caller still gets the configured fallback reply, because silence after a
// recognized wake word is a worse experience than a degraded answer.
type Dispatcher struct {
	url         string
	maxTokens   int
	temperature float64
	stop        []string
	timeout     time.Duration
	fallback    string
	persona     string
	client      *http.Client
}

// Config holds dispatcher parameters.
type Config struct {
	URL         string
	MaxTokens   int
	Temperature float64
	Stop        []string
	Timeout     time.Duration
	Fallback    string
	Persona     string
}

// generateRequest is the generation backend's request body.
type generateRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the generation backend's response body.
type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// New creates a dispatcher for the given backend.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		url:         cfg.URL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		stop:        cfg.Stop,
		timeout:     cfg.Timeout,
		fallback:    cfg.Fallback,
		persona:     cfg.Persona,
		client:      &http.Client{},
	}
}

// Dispatch sends the command to the generation backend and returns the
// reply text. ok is false when the fallback reply was used.
func (d *Dispatcher) Dispatch(ctx context.Context, command string) (reply string, ok bool) {
	text, err := d.generate(ctx, command)
	if err != nil {
		logging.LogError(err, "Generation backend failed, using fallback reply")
		return d.fallback, false
	}
	if text == "" {
		logging.LogWarn("Generation backend returned empty reply, using fallback")
		return d.fallback, false
	}
	return text, true
}

// generate performs one bounded call to the generation backend.
func (d *Dispatcher) generate(ctx context.Context, command string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Prompt:      d.buildPrompt(command),
		MaxTokens:   d.maxTokens,
		Temperature: d.temperature,
		Stop:        d.stop,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.url+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close generate response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse generate response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("generation backend error: %s", parsed.Error)
	}

	return strings.TrimSpace(parsed.Text), nil
}

// buildPrompt embeds the fixed persona instruction and the command as the
// user turn.
func (d *Dispatcher) buildPrompt(command string) string {
	return fmt.Sprintf("%s\n\nUser: %s\nAssistant:", d.persona, command)
}
