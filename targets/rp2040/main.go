//go:build rp2040

package main

import (
	"context"
	_ "embed"
	"machine"
	"time"

	"stepmotion/config"
	"stepmotion/console"
	"stepmotion/core"
)

//go:embed machine.json
var machineJSON []byte

const maxLine = 128

func main() {
	// Clear any watchdog state left over from before the reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()

	cfg, err := config.Load(machineJSON)
	if err != nil {
		halt(err)
	}
	if cfg.Timers > numAlarmTimers {
		cfg.Timers = numAlarmTimers
	}

	var stepPins []core.Pin
	for _, ac := range cfg.Axes {
		pin, err := config.ParsePin(ac.StepPin)
		if err != nil {
			halt(err)
		}
		stepPins = append(stepPins, pin)
	}
	io := newPIOPulseIO(stepPins)
	group, err := cfg.Build(io, initAlarms())
	if err != nil {
		halt(err)
	}

	core.SetDebugWriter(usbPrintln)
	core.SetDebugEnabled(true)
	probeDrivers(cfg)

	disp, err := console.NewDispatcher(group, cfg, console.PollWait(time.Millisecond))
	if err != nil {
		halt(err)
	}
	usbPrintln("stepmotion " + cfg.Name + " ready")

	ctx := context.Background()
	line := make([]byte, 0, maxLine)
	for {
		if usbAvailable() == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		b, err := usbRead()
		if err != nil {
			continue
		}
		if b != '\n' && b != '\r' {
			if len(line) < maxLine {
				line = append(line, b)
			}
			continue
		}
		if len(line) == 0 {
			continue
		}

		text := string(line)
		line = line[:0]
		reply, err := disp.Execute(ctx, text)
		if err != nil {
			usbPrintln("error: " + err.Error())
			continue
		}
		usbPrintln(reply)

		// Post-mortem after an emergency stop
		if cmd, _ := console.ParseLine(text); cmd != nil && cmd.Type == 'M' && cmd.Number == 112 {
			core.DumpEvents()
		}
	}
}

// halt reports a fatal configuration error and blinks the LED forever
func halt(err error) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		usbPrintln("fatal: " + err.Error())
		for i := 0; i < 5; i++ {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}
}
