package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"

	"stepmotion/config"
	"stepmotion/console"
	"stepmotion/core"
	"stepmotion/host/sim"
)

// tickLimit bounds one M400 so a script that leaves an axis rotating fails
// instead of hanging
var tickLimit = 10000000

type axisSummary struct {
	Name     string `json:"name"`
	Position int32  `json:"position"`
	Target   int32  `json:"target"`
	Pulses   int    `json:"pulses"`
	Moving   bool   `json:"moving"`
}

type eventSummary struct {
	Kind  string `json:"kind"`
	Axis  string `json:"axis"`
	S     int64  `json:"s"`
	Pos   int32  `json:"pos"`
	Value int64  `json:"value"`
}

type summary struct {
	RunID       string         `json:"run_id"`
	Machine     string         `json:"machine"`
	Lines       int            `json:"lines"`
	Axes        []axisSummary  `json:"axes"`
	VirtualTime time.Duration  `json:"virtual_time_ns"`
	Ticks       uint64         `json:"ticks"`
	Timers      int            `json:"timers"`
	Events      []eventSummary `json:"events"`
	Error       string         `json:"error,omitempty"`
}

// run executes a script line by line, echoing each reply to out
func run(cfg *config.MachineConfig, in io.Reader, out io.Writer, logger *zap.SugaredLogger) (*summary, error) {
	pool := sim.NewPool(cfg.Timers, logger.Named("sim"))
	pins := sim.NewPins()
	g, err := cfg.Build(pins, pool)
	if err != nil {
		return nil, err
	}

	core.ClearEvents()
	core.SetDebugWriter(func(s string) { logger.Debug(s) })
	core.SetDebugEnabled(true)
	defer core.SetDebugEnabled(false)

	wait := func(ctx context.Context, g *core.Group) error {
		n, err := pool.RunUntilIdle(tickLimit)
		logger.Debugw("ran to idle", "ticks", n, "now", pool.Now())
		return err
	}
	d, err := console.NewDispatcher(g, cfg, wait)
	if err != nil {
		return nil, err
	}

	sum := &summary{RunID: uuid.NewV4().String(), Machine: cfg.Name}
	logger.Infow("starting run", "run", sum.RunID, "axes", g.Len(), "timers", cfg.Timers)

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	var runErr error
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		sum.Lines++
		if line == "" {
			continue
		}
		reply, err := d.Execute(ctx, line)
		if err != nil {
			runErr = errors.Wrapf(err, "line %d", sum.Lines)
			break
		}
		fmt.Fprintf(out, "%s -> %s\n", line, reply)
	}
	if runErr == nil {
		runErr = scanner.Err()
	}
	if runErr == nil {
		// Let queued motion finish as if the script ended with M400.
		_, runErr = d.Execute(ctx, "M400")
	}
	if runErr != nil {
		sum.Error = runErr.Error()
		core.DumpEvents()
	}

	stats := pool.Stats()
	sum.VirtualTime = stats.Now
	sum.Ticks = stats.Ticks
	sum.Timers = stats.Timers
	for _, ax := range g.Axes() {
		sum.Axes = append(sum.Axes, axisSummary{
			Name:     strings.ToUpper(ax.Name()),
			Position: ax.Position(),
			Target:   ax.Target(),
			Pulses:   pins.Pulses(ax.StepPin()),
			Moving:   ax.IsMoving(),
		})
	}
	for _, e := range core.Events() {
		name := "?"
		for _, ax := range g.Axes() {
			if ax.ID() == e.Axis {
				name = strings.ToUpper(ax.Name())
			}
		}
		sum.Events = append(sum.Events, eventSummary{
			Kind: e.Kind.String(), Axis: name, S: e.S, Pos: e.Pos, Value: e.Value,
		})
	}
	logger.Infow("run finished", "run", sum.RunID, "lines", sum.Lines, "virtual", sum.VirtualTime)
	return sum, runErr
}
