/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobbylabs/bobby-relay/internal/events"
	"github.com/bobbylabs/bobby-relay/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		panic(err)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

func newTestStore(t *testing.T) *VoiceEventsStore {
	t.Helper()

	db, err := NewDatabase(DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return NewVoiceEventsStore(db)
}

func newTestEvent(userID string, detected bool) *events.VoiceEvent {
	event := events.New(userID, "req-"+userID)
	event.SetAudioMetadata(1.5, 16000)
	event.SetTranscription("Bobby, quelle heure est-il")
	event.SetDetection(detected, false, "quelle heure est-il")
	event.SetResponse("Il est midi.")
	return event
}

func TestInsertAndGetByUUID(t *testing.T) {
	store := newTestStore(t)

	event := newTestEvent("user-1", true)
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByUUID(event.UUID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}

	if got.UUID != event.UUID {
		t.Errorf("UUID = %q, want %q", got.UUID, event.UUID)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
	if got.Transcription != event.Transcription {
		t.Errorf("Transcription = %q, want %q", got.Transcription, event.Transcription)
	}
	if got.Command != event.Command {
		t.Errorf("Command = %q, want %q", got.Command, event.Command)
	}
	if !got.WakeWordDetected {
		t.Error("WakeWordDetected = false, want true")
	}
	if got.ResponseText != "Il est midi." {
		t.Errorf("ResponseText = %q", got.ResponseText)
	}
}

func TestInsert_InvalidEvent(t *testing.T) {
	store := newTestStore(t)

	event := newTestEvent("user-1", true)
	event.UUID = ""
	if err := store.Insert(event); err == nil {
		t.Error("Insert() expected error for invalid event")
	}
}

func TestGetByUUID_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetByUUID("no-such-uuid"); err == nil {
		t.Error("GetByUUID() expected error for missing event")
	}
}

func TestList_OrderAndPagination(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		event := newTestEvent(fmt.Sprintf("user-%d", i), true)
		event.Timestamp = time.Now().Add(time.Duration(i) * time.Minute)
		if err := store.Insert(event); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	list, err := store.List(ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d events, want 3", len(list))
	}
	if list[0].UserID != "user-4" {
		t.Errorf("first event UserID = %q, want newest (user-4)", list[0].UserID)
	}

	rest, err := store.List(ListOptions{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("List() with offset returned %d events, want 2", len(rest))
	}
}

func TestList_Filters(t *testing.T) {
	store := newTestStore(t)

	detected := newTestEvent("alice", true)
	if err := store.Insert(detected); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	silent := newTestEvent("bob", false)
	if err := store.Insert(silent); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	failed := newTestEvent("alice", true)
	failed.SetError(fmt.Errorf("transcription failed"))
	if err := store.Insert(failed); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	byUser, err := store.List(ListOptions{UserID: "alice"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("List(user=alice) returned %d events, want 2", len(byUser))
	}

	wakeOnly, err := store.List(ListOptions{WakeWordOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(wakeOnly) != 2 {
		t.Errorf("List(wake only) returned %d events, want 2", len(wakeOnly))
	}

	success := true
	successful, err := store.List(ListOptions{Success: &success})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(successful) != 2 {
		t.Errorf("List(success=true) returned %d events, want 2", len(successful))
	}
}

func TestCount_IgnoresPagination(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 4; i++ {
		if err := store.Insert(newTestEvent(fmt.Sprintf("user-%d", i), true)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	count, err := store.Count(ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}
}
