package core

// Pin identifies a digital output channel (step or direction line)
type Pin uint32

const (
	// PulseWidthUS is the width of a step pulse in microseconds
	PulseWidthUS = 8

	// DirSettleUS is the settling delay after a direction change
	DirSettleUS = 5

	// StartSpeed is the initial step rate of every move (steps/s)
	StartSpeed = 200
)

// DigitalIO is the abstract output interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type DigitalIO interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin Pin) error

	// Set drives the pin high (true) or low (false)
	Set(pin Pin, high bool)

	// DelayMicroseconds busy-waits; used for direction settling
	DelayMicroseconds(us uint32)
}

// TickHandler receives the two callbacks of a pulse timer.
// Both run in interrupt context.
type TickHandler interface {
	// OnTick is called once per period at the rising edge of a step pulse
	OnTick()

	// OnPulseReset is called a pulse width after OnTick
	OnPulseReset()
}

// PulseTimer is a periodic hardware timer with a secondary pulse-reset callback.
type PulseTimer interface {
	SetPulseParams(widthUS uint32, pin Pin)
	AttachCallbacks(h TickHandler)
	Start()
	Stop()

	// UpdateFrequency changes the tick rate; takes effect from the next period
	UpdateFrequency(hz uint32)
}

// TimerPool hands out pulse timers. Acquisition is expected to succeed.
type TimerPool interface {
	Acquire() PulseTimer
	Release(t PulseTimer)
}

// Global singletons used by core code.
var (
	digitalIO DigitalIO
	timerPool TimerPool
)

// SetDigitalIO is called by target-specific code to register its driver.
func SetDigitalIO(d DigitalIO) {
	digitalIO = d
}

// MustDigitalIO returns the configured driver or panics if missing.
func MustDigitalIO() DigitalIO {
	if digitalIO == nil {
		panic("digital IO not configured")
	}
	return digitalIO
}

// SetTimerPool is called by target-specific code to register its timers.
func SetTimerPool(p TimerPool) {
	timerPool = p
}

// MustTimerPool returns the configured pool or panics if missing.
func MustTimerPool() TimerPool {
	if timerPool == nil {
		panic("timer pool not configured")
	}
	return timerPool
}
