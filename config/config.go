// Package config loads the JSON machine description: the axes, their pins
// and motion defaults, the timer budget and the driver UART.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"stepmotion/core"
)

// Defaults applied to missing fields
const (
	DefaultSpeed  = 1000 // steps/s
	DefaultAccel  = 2500 // steps/s²
	DefaultTimers = 4
	DefaultBaud   = 115200
)

// AxisConfig describes one stepper axis
type AxisConfig struct {
	Name    string     `json:"name"`     // single G-code letter, e.g. "x"
	StepPin string     `json:"step_pin"` // e.g. "gpio2"
	DirPin  string     `json:"dir_pin"`
	Speed   uint32     `json:"speed"` // default cruise speed (steps/s)
	Accel   uint32     `json:"accel"` // default acceleration (steps/s²)
	TMC     *TMCConfig `json:"tmc,omitempty"`
}

// TMCConfig describes a TMC2209 on the shared driver UART
type TMCConfig struct {
	Address     uint8 `json:"address"`      // 0-3, set by MS1/MS2 straps
	InvertShaft bool  `json:"invert_shaft"` // reverse motor direction in the driver
}

// UARTConfig describes the serial link to the drivers
type UARTConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// MachineConfig is the complete machine configuration
type MachineConfig struct {
	Name   string       `json:"name"`
	Axes   []AxisConfig `json:"axes"`
	Timers int          `json:"timers"` // size of the pulse timer pool
	UART   UARTConfig   `json:"tmc_uart"`
}

// Load parses a JSON configuration and applies defaults
func Load(jsonData []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing machine config")
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(cfg *MachineConfig) {
	if cfg.Name == "" {
		cfg.Name = "stepmotion"
	}
	if cfg.Timers == 0 {
		cfg.Timers = DefaultTimers
	}
	if cfg.UART.Baud == 0 {
		cfg.UART.Baud = DefaultBaud
	}

	for i := range cfg.Axes {
		axis := &cfg.Axes[i]
		axis.Name = strings.ToLower(axis.Name)
		if axis.Speed == 0 {
			axis.Speed = DefaultSpeed
		}
		if axis.Accel == 0 {
			axis.Accel = DefaultAccel
		}
	}
}

// Validate reports every problem in the configuration at once
func (cfg *MachineConfig) Validate() error {
	var err error
	if len(cfg.Axes) == 0 {
		err = multierr.Append(err, errors.New("no axes configured"))
	}
	if cfg.Timers < 1 {
		err = multierr.Append(err, errors.Errorf("timers must be positive, got %d", cfg.Timers))
	}

	names := make(map[string]bool)
	pins := make(map[core.Pin]string)
	for i, axis := range cfg.Axes {
		if len(axis.Name) != 1 || axis.Name[0] < 'a' || axis.Name[0] > 'z' {
			err = multierr.Append(err, errors.Errorf("axis %d: name %q must be a single letter", i, axis.Name))
		} else if names[axis.Name] {
			err = multierr.Append(err, errors.Errorf("axis %s: duplicate name", axis.Name))
		}
		names[axis.Name] = true

		for _, pinName := range []string{axis.StepPin, axis.DirPin} {
			pin, perr := ParsePin(pinName)
			if perr != nil {
				err = multierr.Append(err, errors.Wrapf(perr, "axis %s", axis.Name))
				continue
			}
			if owner, taken := pins[pin]; taken {
				err = multierr.Append(err, errors.Errorf("axis %s: pin %s already used by axis %s", axis.Name, pinName, owner))
				continue
			}
			pins[pin] = axis.Name
		}

		if axis.TMC != nil && axis.TMC.Address > 3 {
			err = multierr.Append(err, errors.Errorf("axis %s: tmc address %d out of range 0-3", axis.Name, axis.TMC.Address))
		}
	}
	return err
}

// ParsePin converts a pin name such as "gpio15" or "15" to a pin number
func ParsePin(name string) (core.Pin, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	if s == "" {
		return 0, errors.Errorf("invalid pin %q", name)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("invalid pin %q", name)
	}
	return core.Pin(n), nil
}

// AxisIndex returns the index of the named axis, or -1
func (cfg *MachineConfig) AxisIndex(name string) int {
	name = strings.ToLower(name)
	for i, axis := range cfg.Axes {
		if axis.Name == name {
			return i
		}
	}
	return -1
}

// Build registers the platform drivers and creates one axis per entry,
// grouped in configuration order.
func (cfg *MachineConfig) Build(io core.DigitalIO, pool core.TimerPool) (*core.Group, error) {
	core.SetDigitalIO(io)
	core.SetTimerPool(pool)

	axes := make([]*core.Axis, 0, len(cfg.Axes))
	for _, ac := range cfg.Axes {
		step, err := ParsePin(ac.StepPin)
		if err != nil {
			return nil, errors.Wrapf(err, "axis %s", ac.Name)
		}
		dir, err := ParsePin(ac.DirPin)
		if err != nil {
			return nil, errors.Wrapf(err, "axis %s", ac.Name)
		}
		ax, err := core.NewAxis(ac.Name, step, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "axis %s", ac.Name)
		}
		axes = append(axes, ax)
	}
	return core.NewGroup(axes...), nil
}

// DefaultConfig returns a two-axis configuration on the first GPIOs
func DefaultConfig() *MachineConfig {
	cfg := &MachineConfig{
		Axes: []AxisConfig{
			{Name: "x", StepPin: "gpio2", DirPin: "gpio3", TMC: &TMCConfig{Address: 0}},
			{Name: "y", StepPin: "gpio4", DirPin: "gpio5", TMC: &TMCConfig{Address: 1}},
		},
		UART: UARTConfig{Device: "/dev/ttyUSB0"},
	}
	applyDefaults(cfg)
	return cfg
}
