package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"tinygo.org/x/drivers/tmc2209"

	"stepmotion/config"
	"stepmotion/driver/tmc"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	faultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

type target struct {
	name   string
	addr   uint8
	invert bool
}

// configTargets lists the axes that have a driver on the UART
func configTargets(cfg *config.MachineConfig) []target {
	var out []target
	for _, ac := range cfg.Axes {
		if ac.TMC == nil {
			continue
		}
		out = append(out, target{name: ac.Name, addr: ac.TMC.Address, invert: ac.TMC.InvertShaft})
	}
	return out
}

// probeAll reads every target, prints one line each and returns how many
// reported faults. Communication errors abort the probe.
func probeAll(comm tmc2209.RegisterComm, targets []target, clearLatched bool, out io.Writer, logger *zap.SugaredLogger) (int, error) {
	faulty := 0
	for _, tg := range targets {
		d, err := tmc.NewDriver(comm, tg.addr, logger)
		if err != nil {
			return faulty, err
		}
		if err := d.SetShaftInverted(tg.invert); err != nil {
			return faulty, err
		}
		st, err := d.Probe()
		if err != nil {
			return faulty, err
		}

		state := "moving"
		if st.Standstill {
			state = "standstill"
		}
		if fault := st.Fault(); fault != nil {
			faulty++
			fmt.Fprintf(out, "%s addr=%d %s %s\n", tg.name, tg.addr, state, faultStyle.Render("FAULT"))
			for _, e := range multierr.Errors(fault) {
				fmt.Fprintf(out, "    %v\n", e)
			}
		} else {
			fmt.Fprintf(out, "%s addr=%d %s %s\n", tg.name, tg.addr, state, okStyle.Render("ok"))
		}
		if st.OverTempWarn {
			fmt.Fprintf(out, "    overtemperature pre-warning\n")
		}

		if clearLatched {
			if err := d.ClearFaults(); err != nil {
				return faulty, err
			}
		}
	}
	return faulty, nil
}
