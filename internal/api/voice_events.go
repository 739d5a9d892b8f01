/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobbylabs/bobby-relay/internal/events"
	"github.com/bobbylabs/bobby-relay/internal/logging"
	"github.com/bobbylabs/bobby-relay/internal/storage"
)

// VoiceEventsHandler serves recorded voice events for inspection.
type VoiceEventsHandler struct {
	store *storage.VoiceEventsStore
}

// NewVoiceEventsHandler creates a new voice events handler
func NewVoiceEventsHandler(store *storage.VoiceEventsStore) *VoiceEventsHandler {
	return &VoiceEventsHandler{store: store}
}

// ListVoiceEventsResponse represents the response for listing voice events
type ListVoiceEventsResponse struct {
	Events     []*events.VoiceEvent `json:"events"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// HandleVoiceEvents handles GET /api/voice-events
func (h *VoiceEventsHandler) HandleVoiceEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.listVoiceEvents(w, r)
}

// HandleVoiceEventByID handles GET /api/voice-events/{uuid}
func (h *VoiceEventsHandler) HandleVoiceEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uuid := strings.TrimPrefix(r.URL.Path, "/api/voice-events/")
	if uuid == "" || strings.Contains(uuid, "/") {
		http.Error(w, "Invalid voice event UUID", http.StatusBadRequest)
		return
	}

	event, err := h.store.GetByUUID(uuid)
	if err != nil {
		http.Error(w, "Voice event not found", http.StatusNotFound)
		return
	}

	writeJSON(w, event)
}

// listVoiceEvents serves the paginated, filtered event list
func (h *VoiceEventsHandler) listVoiceEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 50)
	if pageSize > 200 {
		pageSize = 200
	}

	options := storage.ListOptions{
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
		UserID:       query.Get("user_id"),
		WakeWordOnly: query.Get("wake_word_only") == "true",
	}
	if v := query.Get("success"); v != "" {
		success := v == "true"
		options.Success = &success
	}

	eventsList, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list voice events")
		http.Error(w, "Failed to list voice events", http.StatusInternalServerError)
		return
	}

	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count voice events")
		http.Error(w, "Failed to count voice events", http.StatusInternalServerError)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	writeJSON(w, ListVoiceEventsResponse{
		Events:     eventsList,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.LogError(err, "Failed to encode JSON response")
	}
}
