/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bobbylabs/bobby-relay/internal/config"
	"github.com/bobbylabs/bobby-relay/internal/logging"
	"github.com/bobbylabs/bobby-relay/internal/pipeline"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		panic(err)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

// stubProcessor returns a canned result and records what it was handed.
type stubProcessor struct {
	result    pipeline.Result
	gotUserID string
	gotBody   string
}

func (s *stubProcessor) Process(ctx context.Context, userID string, body io.Reader) pipeline.Result {
	s.gotUserID = userID
	data, _ := io.ReadAll(body)
	s.gotBody = string(data)
	return s.result
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			ReadTimeoutMS:  5000,
			WriteTimeoutMS: 5000,
		},
		STT:  config.STTConfig{Mode: "mock"},
		Wake: config.WakeConfig{Word: "bobby", CooldownMS: 2000},
	}
}

func newTestServer(t *testing.T, processor Processor) *httptest.Server {
	t.Helper()
	s := New(testConfig(), processor, nil, nil)
	ts := httptest.NewServer(s.mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleTranscribe(t *testing.T) {
	stub := &stubProcessor{
		result: pipeline.Result{Text: "Il est midi.", Detected: true},
	}
	ts := newTestServer(t, stub)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/transcribe", strings.NewReader("raw-pcm-bytes"))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("X-User-Id", "user-42")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var result pipeline.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if result.Text != "Il est midi." || !result.Detected {
		t.Errorf("result = %+v", result)
	}

	if stub.gotUserID != "user-42" {
		t.Errorf("processor received user %q, want user-42", stub.gotUserID)
	}
	if stub.gotBody != "raw-pcm-bytes" {
		t.Errorf("processor received body %q", stub.gotBody)
	}
}

func TestHandleTranscribe_DefaultUserID(t *testing.T) {
	stub := &stubProcessor{result: pipeline.Result{}}
	ts := newTestServer(t, stub)

	resp, err := http.Post(ts.URL+"/transcribe", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()

	if stub.gotUserID != "unknown" {
		t.Errorf("processor received user %q, want unknown", stub.gotUserID)
	}
}

func TestHandleTranscribe_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubProcessor{})

	resp, err := http.Get(ts.URL + "/transcribe")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandleTranscribe_StageFailureStillHTTP200(t *testing.T) {
	stub := &stubProcessor{
		result: pipeline.Result{Error: "transcription: engine crashed"},
	}
	ts := newTestServer(t, stub)

	resp, err := http.Post(ts.URL+"/transcribe", "application/octet-stream", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for in-band failures", resp.StatusCode)
	}

	var result pipeline.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if result.Error == "" || result.Detected {
		t.Errorf("result = %+v, want in-band error with detected = false", result)
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, &stubProcessor{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if health["status"] != "ready" {
		t.Errorf("status field = %v, want ready", health["status"])
	}
	if health["stt_mode"] != "mock" {
		t.Errorf("stt_mode field = %v, want mock", health["stt_mode"])
	}
	if _, ok := health["uptime_seconds"]; !ok {
		t.Error("health response missing uptime_seconds")
	}
}
