package console

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"stepmotion/config"
	"stepmotion/core"
)

// WaitFunc blocks until every axis of the group is idle
type WaitFunc func(ctx context.Context, g *core.Group) error

// PollWait waits by polling the group, for targets where real timers drive
// the axes.
func PollWait(interval time.Duration) WaitFunc {
	return func(ctx context.Context, g *core.Group) error {
		for g.IsMoving() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		return nil
	}
}

type axisDefaults struct {
	speed uint32
	accel uint32
}

// Dispatcher executes console commands against a group of axes.
//
//	G0/G1 <axis><pos>... [F<speed>] [K<accel>]  coordinated move
//	G90 / G91                                   absolute / relative positions
//	G92 <axis><pos>...                          set position of idle axes
//	M3 <axis><speed>... [K<accel>]              rotate
//	M5 [K<accel>]                               graceful stop
//	M112                                        emergency stop
//	M114                                        report positions
//	M220 S<speed> [K<accel>]                    override speed
//	M400                                        wait for idle
type Dispatcher struct {
	group    *core.Group
	letters  map[byte]int
	defaults []axisDefaults
	relative bool
	wait     WaitFunc
}

// NewDispatcher binds a dispatcher to a group built from cfg. Axis letters
// and default speeds come from the configuration.
func NewDispatcher(g *core.Group, cfg *config.MachineConfig, wait WaitFunc) (*Dispatcher, error) {
	if g.Len() != len(cfg.Axes) {
		return nil, errors.Errorf("group has %d axes, config has %d", g.Len(), len(cfg.Axes))
	}
	if wait == nil {
		wait = PollWait(time.Millisecond)
	}
	d := &Dispatcher{
		group:   g,
		letters: make(map[byte]int),
		wait:    wait,
	}
	for i, ac := range cfg.Axes {
		letter := toUpper(ac.Name[0])
		if letter == 'F' || letter == 'K' || letter == 'S' {
			return nil, errors.Errorf("axis %s: letter clashes with a command parameter", ac.Name)
		}
		d.letters[letter] = i
		d.defaults = append(d.defaults, axisDefaults{speed: ac.Speed, accel: ac.Accel})
	}
	return d, nil
}

// Group returns the dispatched group
func (d *Dispatcher) Group() *core.Group { return d.group }

// Execute parses and runs one line. It returns the reply text ("ok" or a
// report).
func (d *Dispatcher) Execute(ctx context.Context, line string) (string, error) {
	cmd, err := ParseLine(line)
	if err != nil {
		return "", err
	}
	if cmd == nil || cmd.Type == 0 {
		return "ok", nil
	}
	if err := d.Run(ctx, cmd); err != nil {
		return "", errors.Wrapf(err, "%c%d", cmd.Type, cmd.Number)
	}
	if cmd.Type == 'M' && cmd.Number == 114 {
		return d.Report(), nil
	}
	return "ok", nil
}

// Run executes a parsed command
func (d *Dispatcher) Run(ctx context.Context, cmd *Command) error {
	switch {
	case cmd.Type == 'G' && (cmd.Number == 0 || cmd.Number == 1):
		return d.move(cmd)
	case cmd.Type == 'G' && cmd.Number == 90:
		d.relative = false
	case cmd.Type == 'G' && cmd.Number == 91:
		d.relative = true
	case cmd.Type == 'G' && cmd.Number == 92:
		return d.setPosition(cmd)
	case cmd.Type == 'M' && cmd.Number == 3:
		return d.rotate(cmd)
	case cmd.Type == 'M' && cmd.Number == 5:
		d.group.Stop(accelParam(cmd, 0))
	case cmd.Type == 'M' && cmd.Number == 112:
		d.group.EmergencyStop()
	case cmd.Type == 'M' && cmd.Number == 114:
	case cmd.Type == 'M' && cmd.Number == 220:
		if !cmd.HasParameter('S') {
			return errors.New("missing S")
		}
		d.group.Override(int32(math.Round(cmd.Parameters['S'])), accelParam(cmd, 0))
	case cmd.Type == 'M' && cmd.Number == 400:
		return d.wait(ctx, d.group)
	default:
		return errors.New("unknown command")
	}
	return nil
}

// axisParams returns the axis values of a command by axis index
func (d *Dispatcher) axisParams(cmd *Command) (map[int]float64, error) {
	out := make(map[int]float64)
	for letter, value := range cmd.Parameters {
		if letter == 'F' || letter == 'K' || letter == 'S' {
			continue
		}
		i, ok := d.letters[letter]
		if !ok {
			return nil, errors.Errorf("unknown axis %c", letter)
		}
		out[i] = value
	}
	return out, nil
}

func (d *Dispatcher) move(cmd *Command) error {
	params, err := d.axisParams(cmd)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}

	targets := make([]int32, d.group.Len())
	longest, lead := int64(-1), 0
	for i, ax := range d.group.Axes() {
		targets[i] = ax.Target()
		if v, ok := params[i]; ok {
			step := int32(math.Round(v))
			if d.relative {
				step += ax.Target()
			}
			targets[i] = step
		}
		if dist := abs(int64(targets[i]) - int64(ax.Position())); dist > longest {
			longest, lead = dist, i
		}
	}

	speed := d.defaults[lead].speed
	if cmd.HasParameter('F') {
		speed = uint32(math.Abs(math.Round(cmd.Parameters['F'])))
	}
	return d.group.MoveTo(targets, speed, accelParam(cmd, d.defaults[lead].accel))
}

func (d *Dispatcher) setPosition(cmd *Command) error {
	params, err := d.axisParams(cmd)
	if err != nil {
		return err
	}
	for i, v := range params {
		ax := d.group.Axis(i)
		if !ax.SetPosition(int32(math.Round(v))) {
			return errors.Errorf("axis %s is moving", ax.Name())
		}
	}
	return nil
}

func (d *Dispatcher) rotate(cmd *Command) error {
	params, err := d.axisParams(cmd)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return errors.New("no axis given")
	}
	for i, v := range params {
		if err := d.group.Rotate(i, int32(math.Round(v)), accelParam(cmd, d.defaults[i].accel)); err != nil {
			return errors.Wrapf(err, "axis %s", d.group.Axis(i).Name())
		}
	}
	return nil
}

// Report formats the current positions, e.g. "X:100 Y:-40"
func (d *Dispatcher) Report() string {
	var sb strings.Builder
	for i, ax := range d.group.Axes() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ToUpper(ax.Name()))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(int(ax.Position())))
	}
	return sb.String()
}

// accelParam returns the K parameter, or def when absent
func accelParam(cmd *Command, def uint32) uint32 {
	if !cmd.HasParameter('K') {
		return def
	}
	return uint32(math.Abs(math.Round(cmd.Parameters['K'])))
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
