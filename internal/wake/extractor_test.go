/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package wake

import "testing"

func TestNewExtractor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		word string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"multiple tokens", "hey bobby"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExtractor(tt.word); err == nil {
				t.Errorf("NewExtractor(%q) expected error, got nil", tt.word)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	extractor, err := NewExtractor("bobby")
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	tests := []struct {
		name         string
		utterance    string
		wantDetected bool
		wantCommand  string
	}{
		{
			name:         "empty utterance",
			utterance:    "",
			wantDetected: false,
			wantCommand:  "",
		},
		{
			name:         "no wake word",
			utterance:    "quelle heure est-il",
			wantDetected: false,
			wantCommand:  "",
		},
		{
			name:         "wake word embedded in longer token",
			utterance:    "the bobbyish approach",
			wantDetected: false,
			wantCommand:  "",
		},
		{
			name:         "case-insensitive with leading words",
			utterance:    "Hé Bobby, quelle heure est-il",
			wantDetected: true,
			wantCommand:  "quelle heure est-il",
		},
		{
			name:         "wake word followed by punctuation",
			utterance:    "Bobby, allume la lumière",
			wantDetected: true,
			wantCommand:  "allume la lumière",
		},
		{
			name:         "bare invocation falls back to full utterance",
			utterance:    "Bobby ?",
			wantDetected: true,
			wantCommand:  "Bobby ?",
		},
		{
			name:         "single character remainder falls back",
			utterance:    "Bobby a",
			wantDetected: true,
			wantCommand:  "Bobby a",
		},
		{
			name:         "only first occurrence used",
			utterance:    "Bobby dis bonjour à Bobby",
			wantDetected: true,
			wantCommand:  "dis bonjour à Bobby",
		},
		{
			name:         "uppercase wake word",
			utterance:    "BOBBY raconte une blague",
			wantDetected: true,
			wantCommand:  "raconte une blague",
		},
		{
			name:         "trailing punctuation stripped from command",
			utterance:    "bobby quelle heure est-il ?",
			wantDetected: true,
			wantCommand:  "quelle heure est-il",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, command := extractor.Extract(tt.utterance)
			if detected != tt.wantDetected {
				t.Errorf("Extract(%q) detected = %v, want %v", tt.utterance, detected, tt.wantDetected)
			}
			if command != tt.wantCommand {
				t.Errorf("Extract(%q) command = %q, want %q", tt.utterance, command, tt.wantCommand)
			}
		})
	}
}

func TestExtract_CommandNeverEmptyWhenDetected(t *testing.T) {
	extractor, err := NewExtractor("bobby")
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	utterances := []string{
		"Bobby",
		"Bobby!",
		"bobby.",
		"Bobby, dis-moi tout",
		"oh Bobby ?",
	}

	for _, u := range utterances {
		detected, command := extractor.Extract(u)
		if !detected {
			t.Errorf("Extract(%q) detected = false, want true", u)
			continue
		}
		if command == "" {
			t.Errorf("Extract(%q) returned empty command with detected = true", u)
		}
	}
}
