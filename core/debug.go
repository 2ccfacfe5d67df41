package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// EventKind identifies a motion event
type EventKind uint8

// Event kind codes
const (
	EvtMoveStart     EventKind = 1 // target move started
	EvtRotateStart   EventKind = 2 // rotation started
	EvtStopRequest   EventKind = 3 // graceful stop requested
	EvtOverride      EventKind = 4 // speed override applied
	EvtRetarget      EventKind = 5 // running move re-targeted
	EvtIgnored       EventKind = 6 // start command ignored while busy
	EvtMoveDone      EventKind = 7 // move completed, timer released
	EvtEmergencyStop EventKind = 8 // hard abort
)

func (k EventKind) String() string {
	switch k {
	case EvtMoveStart:
		return "MOVE_START"
	case EvtRotateStart:
		return "ROTATE_START"
	case EvtStopRequest:
		return "STOP_REQ"
	case EvtOverride:
		return "OVERRIDE"
	case EvtRetarget:
		return "RETARGET"
	case EvtIgnored:
		return "IGNORED"
	case EvtMoveDone:
		return "MOVE_DONE"
	case EvtEmergencyStop:
		return "ESTOP!"
	}
	return "UNKNOWN"
}

// Event captures a motion event for post-mortem analysis
type Event struct {
	Kind  EventKind
	Axis  uint8 // Axis ID
	S     int64 // Step index within the move
	Pos   int32 // Absolute position
	Value int64 // Context-dependent value
}

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	// Event ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventCount    uint32
	eventCS       critical
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures an event in the ring buffer.
// Safe from both the control path and timer callbacks.
func RecordEvent(kind EventKind, axis uint8, s int64, pos int32, value int64) {
	eventCS.enter()
	idx := eventRingHead
	eventRing[idx] = Event{
		Kind:  kind,
		Axis:  axis,
		S:     s,
		Pos:   pos,
		Value: value,
	}
	eventRingHead = (idx + 1) % EventRingSize
	eventCount++
	eventCS.exit()
}

// Events returns the recorded events, oldest first
func Events() []Event {
	eventCS.enter()
	defer eventCS.exit()

	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventCount returns the number of events recorded since the last clear,
// including those already overwritten
func EventCount() uint32 {
	eventCS.enter()
	defer eventCS.exit()
	return eventCount
}

// DumpEvents outputs the event ring (call on shutdown/error). Nothing is
// written unless debug output is enabled.
func DumpEvents() {
	if !debugEnabled {
		return
	}

	DebugPrintln("[EVENT] === Event Ring Dump ===")
	for _, evt := range Events() {
		DebugPrintln("[EVENT] " + evt.Kind.String() +
			" axis=" + itoa(int(evt.Axis)) +
			" s=" + itoa(int(evt.S)) +
			" pos=" + itoa(int(evt.Pos)) +
			" v=" + itoa(int(evt.Value)))
	}
	DebugPrintln("[EVENT] === End Dump ===")
}

// ClearEvents clears the event buffer
func ClearEvents() {
	eventCS.enter()
	defer eventCS.exit()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	eventCount = 0
}
