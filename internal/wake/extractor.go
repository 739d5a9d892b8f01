/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package wake

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// commandCutset is the punctuation and whitespace stripped around the
// extracted command.
const commandCutset = " \t,.?!"

// Extractor detects a configured wake word inside an utterance and splits
// out the command that follows it. Matching is case-insensitive and
// word-boundary anchored, so "bobbyish" does not match but "Bobby," does.
type Extractor struct {
	word string
	re   *regexp.Regexp
}

// NewExtractor compiles the wake-word pattern. The wake word must be a
// single token.
func NewExtractor(word string) (*Extractor, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return nil, fmt.Errorf("wake word is empty")
	}
	if strings.ContainsAny(w, " \t") {
		return nil, fmt.Errorf("wake word must be a single token: %q", word)
	}

	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("compile wake word pattern: %w", err)
	}

	return &Extractor{word: w, re: re}, nil
}

// Word returns the configured wake word.
func (e *Extractor) Word() string {
	return e.word
}

// Extract reports whether the utterance contains the wake word and returns
// the command following its first occurrence, stripped of surrounding
// punctuation. A degenerate remainder (one character or less) falls back to
// the full utterance so a bare invocation is not silently dropped.
func (e *Extractor) Extract(utterance string) (bool, string) {
	if utterance == "" {
		return false, ""
	}

	loc := e.re.FindStringIndex(utterance)
	if loc == nil {
		return false, ""
	}

	command := strings.Trim(utterance[loc[1]:], commandCutset)
	if utf8.RuneCountInString(command) <= 1 {
		command = strings.TrimSpace(utterance)
	}

	return true, command
}
