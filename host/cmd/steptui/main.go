// Command steptui drives simulated axes interactively and charts their
// step rates while they move.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"stepmotion/config"
	"stepmotion/console"
	"stepmotion/host/sim"
)

var (
	configPath = flag.String("config", "", "Machine configuration (JSON); built-in two-axis machine if empty")
	rate       = flag.Float64("rate", 1.0, "Virtual time per wall-clock second")
	logPath    = flag.String("log", "", "Write logs to this file (the terminal belongs to the UI)")
)

func main() {
	flag.Parse()

	logger := zap.NewNop().Sugar()
	if *logPath != "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{*logPath}
		l, err := cfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l.Sugar()
		defer logger.Sync() //nolint:errcheck
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	pool := sim.NewPool(cfg.Timers, logger.Named("sim"))
	pins := sim.NewPins()
	g, err := cfg.Build(pins, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	disp, err := console.NewDispatcher(g, cfg, console.PollWait(10*time.Millisecond))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pool.Run(ctx, *rate, time.Millisecond); err != nil && err != context.Canceled {
			logger.Errorw("simulation stopped", "error", err)
		}
	}()

	p := tea.NewProgram(newModel(cfg, disp, pool, pins), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Errorw("ui failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
