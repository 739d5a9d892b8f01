/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package wake

import "time"

// Gate suppresses duplicate wake-word activations inside a cooldown window.
// Overlapping client-side capture windows can deliver the same utterance
// twice; the gate collapses them into a single admitted command.
//
// The gate carries no lock of its own: Admit must be called while holding
// the same guard that serializes transcription, which makes the
// check-and-update atomic across sessions.
type Gate struct {
	cooldown time.Duration
	now      func() time.Time
	last     time.Time
}

// NewGate creates a gate with the given cooldown window.
func NewGate(cooldown time.Duration) *Gate {
	return NewGateWithClock(cooldown, time.Now)
}

// NewGateWithClock creates a gate with an injectable clock for tests.
func NewGateWithClock(cooldown time.Duration, now func() time.Time) *Gate {
	return &Gate{cooldown: cooldown, now: now}
}

// Admit reports whether a wake event may proceed to dispatch. An admitted
// event moves the gate into cooling; a suppressed event leaves the
// last-accepted timestamp untouched.
func (g *Gate) Admit() bool {
	n := g.now()
	if !g.last.IsZero() && n.Sub(g.last) < g.cooldown {
		return false
	}
	if n.After(g.last) {
		g.last = n
	}
	return true
}

// LastAccepted returns the timestamp of the most recent admitted event.
func (g *Gate) LastAccepted() time.Time {
	return g.last
}
