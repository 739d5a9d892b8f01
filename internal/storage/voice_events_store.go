/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/bobbylabs/bobby-relay/internal/events"
	"github.com/bobbylabs/bobby-relay/internal/logging"
)

// VoiceEventsStore handles database operations for voice events
type VoiceEventsStore struct {
	db *Database
}

// ListOptions controls pagination and filtering for List and Count.
type ListOptions struct {
	Limit        int
	Offset       int
	UserID       string
	WakeWordOnly bool
	Success      *bool
}

// NewVoiceEventsStore creates a new voice events store
func NewVoiceEventsStore(db *Database) *VoiceEventsStore {
	return &VoiceEventsStore{db: db}
}

// Insert stores a new voice event in the database
func (s *VoiceEventsStore) Insert(event *events.VoiceEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid voice event: %w", err)
	}

	query := `
		INSERT INTO voice_events (
			uuid, request_id, user_id, timestamp,
			audio_duration, sample_rate,
			wake_word_detected, suppressed, transcription, command,
			response_text, processing_time_ms, success, error_message
		) VALUES (
			?, ?, ?, ?,
			?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.RequestID, event.UserID, event.Timestamp,
		event.AudioDuration, event.SampleRate,
		event.WakeWordDetected, event.Suppressed, event.Transcription, event.Command,
		event.ResponseText, event.ProcessingTime, event.Success, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert voice event: %w", err)
	}

	logging.LogDatabaseOperation("insert", "voice_events")
	return nil
}

// GetByUUID retrieves a voice event by its UUID
func (s *VoiceEventsStore) GetByUUID(uuid string) (*events.VoiceEvent, error) {
	query := selectColumns + ` WHERE uuid = ?`

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanVoiceEvent(row)
}

// List retrieves voice events with pagination and filtering, newest first.
func (s *VoiceEventsStore) List(options ListOptions) ([]*events.VoiceEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice events: %w", err)
	}
	defer rows.Close()

	var eventsList []*events.VoiceEvent
	for rows.Next() {
		event, err := s.scanVoiceEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice event: %w", err)
		}
		eventsList = append(eventsList, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice events: %w", err)
	}

	return eventsList, nil
}

// Count returns the total number of voice events matching the filter
func (s *VoiceEventsStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS filtered"

	var count int64
	if err := s.db.DB().QueryRow(countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count voice events: %w", err)
	}

	return count, nil
}

const selectColumns = `
	SELECT uuid, request_id, user_id, timestamp,
		   audio_duration, sample_rate,
		   wake_word_detected, suppressed, transcription, command,
		   response_text, processing_time_ms, success, error_message
	FROM voice_events`

// buildListQuery assembles the filtered SELECT for List and Count
func (s *VoiceEventsStore) buildListQuery(options ListOptions) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if options.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, options.UserID)
	}
	if options.WakeWordOnly {
		conditions = append(conditions, "wake_word_detected = TRUE")
	}
	if options.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *options.Success)
	}

	query := selectColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanner abstracts sql.Row and sql.Rows for scanVoiceEvent
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanVoiceEvent scans one row into a VoiceEvent
func (s *VoiceEventsStore) scanVoiceEvent(row scanner) (*events.VoiceEvent, error) {
	var event events.VoiceEvent

	err := row.Scan(
		&event.UUID, &event.RequestID, &event.UserID, &event.Timestamp,
		&event.AudioDuration, &event.SampleRate,
		&event.WakeWordDetected, &event.Suppressed, &event.Transcription, &event.Command,
		&event.ResponseText, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voice event not found")
	}
	if err != nil {
		return nil, err
	}

	return &event, nil
}
