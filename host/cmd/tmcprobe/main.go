// Command tmcprobe reports the fault state of TMC2209 drivers on a UART
// and optionally clears faults or sets the shaft direction.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"stepmotion/config"
	"stepmotion/driver/tmc"
	"stepmotion/host/serial"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device of the driver UART")
	addr       = flag.Int("addr", 0, "Driver address (0-3)")
	configPath = flag.String("config", "", "Probe every driver listed in this machine configuration instead of -addr")
	clearFlag  = flag.Bool("clear", false, "Clear latched faults after reading them")
	invert     = flag.Bool("invert", false, "Invert the motor direction (only with -addr)")
	echo       = flag.Bool("echo", true, "Skip the local echo of a single-wire adapter")
)

func main() {
	flag.Parse()

	l, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := l.Sugar()
	defer logger.Sync() //nolint:errcheck

	targets := []target{{name: "-", addr: uint8(*addr), invert: *invert}}
	dev := *device
	if *configPath != "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			logger.Fatalw("bad configuration", "path", *configPath, "error", err)
		}
		targets = configTargets(cfg)
		if cfg.UART.Device != "" && !isSet("device") {
			dev = cfg.UART.Device
		}
	}

	port, err := serial.Open(serial.TMCConfig(dev))
	if err != nil {
		logger.Fatalw("cannot open driver UART", "error", err)
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		logger.Warnw("flush failed", "error", err)
	}

	comm := tmc.NewUARTComm(port, *echo)
	faulty, err := probeAll(comm, targets, *clearFlag, os.Stdout, logger)
	if err != nil {
		logger.Fatalw("probe failed", "error", err)
	}
	if faulty > 0 {
		os.Exit(2)
	}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
