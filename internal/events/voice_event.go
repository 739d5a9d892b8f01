/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VoiceEvent records one complete voice session for traceability: what was
// heard, what was decided, and what was answered.
type VoiceEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	RequestID string    `json:"request_id" db:"request_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`

	// Decision results
	WakeWordDetected bool   `json:"wake_word_detected" db:"wake_word_detected"`
	Suppressed       bool   `json:"suppressed" db:"suppressed"`
	Transcription    string `json:"transcription" db:"transcription"`
	Command          string `json:"command" db:"command"`

	// Response data
	ResponseText   string `json:"response_text" db:"response_text"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// New creates a VoiceEvent with a generated UUID and current timestamp.
func New(userID, requestID string) *VoiceEvent {
	return &VoiceEvent{
		UUID:      uuid.NewString(),
		RequestID: requestID,
		UserID:    userID,
		Timestamp: time.Now(),
		Success:   true,
	}
}

// SetAudioMetadata records the normalized capture's shape.
func (ve *VoiceEvent) SetAudioMetadata(duration float64, sampleRate int) {
	ve.AudioDuration = duration
	ve.SampleRate = sampleRate
}

// SetTranscription records the filtered utterance.
func (ve *VoiceEvent) SetTranscription(utterance string) {
	ve.Transcription = utterance
}

// SetDetection records the wake-word decision.
func (ve *VoiceEvent) SetDetection(detected, suppressed bool, command string) {
	ve.WakeWordDetected = detected
	ve.Suppressed = suppressed
	ve.Command = command
}

// SetResponse records the reply and closes the processing timer.
func (ve *VoiceEvent) SetResponse(responseText string) {
	ve.ResponseText = responseText
	ve.ProcessingTime = time.Since(ve.Timestamp).Milliseconds()
}

// SetError marks the event as failed with an error message.
func (ve *VoiceEvent) SetError(err error) {
	ve.Success = false
	ve.ErrorMessage = err.Error()
	ve.ProcessingTime = time.Since(ve.Timestamp).Milliseconds()
}

// IsValid performs basic validation on the voice event.
func (ve *VoiceEvent) IsValid() error {
	if ve.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if ve.UserID == "" {
		return fmt.Errorf("userID is required")
	}

	if ve.RequestID == "" {
		return fmt.Errorf("requestID is required")
	}

	if ve.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	return nil
}

// String returns a human-readable representation of the voice event.
func (ve *VoiceEvent) String() string {
	return fmt.Sprintf("VoiceEvent{UUID: %s, UserID: %s, Detected: %t, Suppressed: %t, Transcription: %q, Success: %t}",
		ve.UUID, ve.UserID, ve.WakeWordDetected, ve.Suppressed, ve.Transcription, ve.Success)
}
