//go:build rp2040

package main

import (
	"errors"
	"machine"

	"stepmotion/config"
	"stepmotion/driver/tmc"
)

const uartTimeoutUS = 100000

var errUARTTimeout = errors.New("uart read timeout")

// uartPort gives machine.UART blocking reads with a deadline, which
// io.ReadFull in the TMC bus code needs.
type uartPort struct {
	uart *machine.UART
}

func (u uartPort) Read(b []byte) (int, error) {
	start := nowUS()
	for u.uart.Buffered() == 0 {
		if nowUS()-start > uartTimeoutUS {
			return 0, errUARTTimeout
		}
	}
	return u.uart.Read(b)
}

func (u uartPort) Write(b []byte) (int, error) {
	return u.uart.Write(b)
}

// probeDrivers checks every configured TMC2209 at boot, clears latched
// faults and applies the shaft direction. It reports one line per driver.
func probeDrivers(cfg *config.MachineConfig) {
	hasTMC := false
	for _, ac := range cfg.Axes {
		hasTMC = hasTMC || ac.TMC != nil
	}
	if !hasTMC {
		return
	}

	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: uint32(cfg.UART.Baud)}); err != nil {
		usbPrintln("tmc: uart: " + err.Error())
		return
	}
	comm := tmc.NewUARTComm(uartPort{uart: uart}, true)

	for _, ac := range cfg.Axes {
		if ac.TMC == nil {
			continue
		}
		d, err := tmc.NewDriver(comm, ac.TMC.Address, nil)
		if err != nil {
			usbPrintln("tmc " + ac.Name + ": " + err.Error())
			continue
		}
		st, err := d.Probe()
		if err != nil {
			usbPrintln("tmc " + ac.Name + ": " + err.Error())
			continue
		}
		if fault := st.Fault(); fault != nil {
			usbPrintln("tmc " + ac.Name + ": " + fault.Error())
		}
		if err := d.ClearFaults(); err != nil {
			usbPrintln("tmc " + ac.Name + ": " + err.Error())
		}
		if err := d.SetShaftInverted(ac.TMC.InvertShaft); err != nil {
			usbPrintln("tmc " + ac.Name + ": " + err.Error())
		}
	}
}
