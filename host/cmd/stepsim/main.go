// Command stepsim runs a console script against simulated axes in virtual
// time and reports where everything ended up.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"stepmotion/config"
)

var (
	configPath = flag.String("config", "", "Machine configuration (JSON); built-in two-axis machine if empty")
	scriptPath = flag.String("script", "-", "Console script, '-' for stdin")
	report     = flag.Bool("report", false, "Render a run report after the script")
	jsonOut    = flag.Bool("json", false, "Print the run summary as JSON")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func main() {
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.DefaultConfig()
	if *configPath != "" {
		if cfg, err = config.LoadFile(*configPath); err != nil {
			logger.Fatalw("bad configuration", "path", *configPath, "error", err)
		}
	}

	var in io.Reader = os.Stdin
	if *scriptPath != "-" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			logger.Fatalw("cannot open script", "error", err)
		}
		defer f.Close()
		in = f
	}

	if !*jsonOut {
		fmt.Println(headerStyle.Render("stepsim - " + cfg.Name))
	}

	sum, err := run(cfg, in, os.Stdout, logger)
	if err != nil {
		logger.Errorw("script failed", "error", err)
	}

	switch {
	case *jsonOut:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			logger.Fatalw("encode summary", "error", err)
		}
	case *report:
		text, err := renderReport(sum)
		if err != nil {
			logger.Fatalw("render report", "error", err)
		}
		fmt.Print(text)
	}

	if err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
