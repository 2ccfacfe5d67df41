package core

import (
	"strings"
	"testing"
)

func TestEventsForCompletedMove(t *testing.T) {
	r := newTestRig()
	ax := r.axis(t, "x", 2, 3)

	ClearEvents()
	ax.StartMoveTo(100, 0, 500, 500)
	r.pool.runUntilIdle(t, 1000)

	evts := Events()
	if len(evts) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(evts))
	}
	if evts[0].Kind != EvtMoveStart || evts[0].Value != 100 {
		t.Errorf("Expected MOVE_START for 100 steps, got %s %d", evts[0].Kind, evts[0].Value)
	}
	if evts[1].Kind != EvtMoveDone || evts[1].Pos != 100 || evts[1].Axis != ax.ID() {
		t.Errorf("Unexpected completion event %+v", evts[1])
	}
}

func TestEventRingWraps(t *testing.T) {
	ClearEvents()
	for i := 0; i < EventRingSize+8; i++ {
		RecordEvent(EvtOverride, 1, int64(i), 0, int64(i))
	}

	evts := Events()
	if len(evts) != EventRingSize {
		t.Fatalf("Expected %d events, got %d", EventRingSize, len(evts))
	}
	if evts[0].Value != 8 || evts[len(evts)-1].Value != EventRingSize+7 {
		t.Errorf("Expected oldest 8 and newest %d, got %d and %d",
			EventRingSize+7, evts[0].Value, evts[len(evts)-1].Value)
	}
	if EventCount() != EventRingSize+8 {
		t.Errorf("Expected count %d, got %d", EventRingSize+8, EventCount())
	}
}

func TestDumpEvents(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	SetDebugEnabled(true)
	defer SetDebugEnabled(false)

	ClearEvents()
	RecordEvent(EvtEmergencyStop, 3, 42, -7, 0)
	DumpEvents()

	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[1], "ESTOP!") || !strings.Contains(lines[1], "pos=-7") {
		t.Errorf("Unexpected dump line %q", lines[1])
	}
}

func TestDumpEventsDisabled(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	SetDebugEnabled(false)

	ClearEvents()
	RecordEvent(EvtEmergencyStop, 3, 42, -7, 0)
	DumpEvents()
	DebugPrintln("dropped")

	if len(lines) != 0 {
		t.Errorf("Expected no output while disabled, got %v", lines)
	}
}
