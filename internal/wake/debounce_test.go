/*
Copyright (c) 2025 Bobby Labs

Licensed under the AGPLv3 License.
This file is part of bobby-relay.
*/

package wake

import (
	"testing"
	"time"
)

// fakeClock returns a controllable now() function
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestGate_AdmitAndSuppress(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewGateWithClock(2*time.Second, clock.now)

	if !gate.Admit() {
		t.Fatal("first event should be admitted")
	}

	// 1s later, inside the 2s cooldown window
	clock.advance(1 * time.Second)
	if gate.Admit() {
		t.Error("event inside cooldown window should be suppressed")
	}

	// Suppression must not extend the window: 1.5s after the first
	// admission is still inside it.
	clock.advance(500 * time.Millisecond)
	if gate.Admit() {
		t.Error("event still inside cooldown window should be suppressed")
	}

	// 2.5s after the first admission the gate is open again.
	clock.advance(1 * time.Second)
	if !gate.Admit() {
		t.Error("event past cooldown window should be admitted")
	}
}

func TestGate_SpacedEventsAllAdmitted(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewGateWithClock(2*time.Second, clock.now)

	for i := 0; i < 5; i++ {
		if !gate.Admit() {
			t.Errorf("event %d spaced past the window should be admitted", i)
		}
		clock.advance(3 * time.Second)
	}
}

func TestGate_TimestampMonotonic(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewGateWithClock(1*time.Second, clock.now)

	gate.Admit()
	first := gate.LastAccepted()

	clock.advance(2 * time.Second)
	gate.Admit()
	second := gate.LastAccepted()

	if second.Before(first) {
		t.Errorf("last-accepted timestamp went backwards: %v then %v", first, second)
	}

	// A suppressed event leaves the timestamp untouched.
	clock.advance(100 * time.Millisecond)
	gate.Admit()
	if got := gate.LastAccepted(); !got.Equal(second) {
		t.Errorf("suppressed event moved timestamp: %v, want %v", got, second)
	}
}

func TestGate_ZeroCooldownAdmitsEverything(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := NewGateWithClock(0, clock.now)

	for i := 0; i < 3; i++ {
		if !gate.Admit() {
			t.Errorf("event %d with zero cooldown should be admitted", i)
		}
	}
}
