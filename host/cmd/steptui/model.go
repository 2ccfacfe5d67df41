package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stepmotion/config"
	"stepmotion/console"
	"stepmotion/host/sim"
)

const (
	headerHeight = 2
	panelHeight  = 4
	footerHeight = 7
	maxLogs      = 5
	borderSize   = 2
	sampleEvery  = 100 * time.Millisecond
	overrideStep = 200
)

var axisColors = []string{"196", "46", "51", "226", "201", "208"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

type sampleMsg time.Time

type tuiModel struct {
	cfg   *config.MachineConfig
	disp  *console.Dispatcher
	pool  *sim.Pool
	pins  *sim.Pins
	chart *streamlinechart.Model

	width    int
	height   int
	logs     []string
	quitting bool

	// per-axis sampling state for the step rate chart
	lastPulses []int
	lastNow    time.Duration

	far      bool  // next "m"/"g" goes back to zero
	reverse  bool  // next "r" spins the other way
	override int32 // last M220 speed
}

func newModel(cfg *config.MachineConfig, disp *console.Dispatcher, pool *sim.Pool, pins *sim.Pins) tuiModel {
	var maxSpeed uint32
	for _, ac := range cfg.Axes {
		maxSpeed = max(maxSpeed, ac.Speed)
	}
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, float64(maxSpeed)*1.5),
	)
	for i, ac := range cfg.Axes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[i%len(axisColors)]))
		chart.SetDataSetStyles(ac.Name, runes.ThinLineStyle, style)
	}
	return tuiModel{
		cfg:        cfg,
		disp:       disp,
		pool:       pool,
		pins:       pins,
		chart:      &chart,
		lastPulses: make([]int, len(cfg.Axes)),
		override:   int32(cfg.Axes[0].Speed),
	}
}

func sample() tea.Cmd {
	return tea.Tick(sampleEvery, func(t time.Time) tea.Msg { return sampleMsg(t) })
}

func (m *tuiModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// exec runs one console line and logs the reply
func (m *tuiModel) exec(line string) {
	reply, err := m.disp.Execute(context.Background(), line)
	if err != nil {
		m.addLog(line + ": " + err.Error())
		return
	}
	m.addLog(line + " -> " + reply)
}

func (m *tuiModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-panelHeight-footerHeight-borderSize, 10)
	return width, height
}

// moveLine builds an absolute move of the given axes to 0 or 4 s of travel
// at each axis' default speed
func (m *tuiModel) moveLine(axes int) string {
	parts := []string{"G1"}
	for i := 0; i < axes && i < len(m.cfg.Axes); i++ {
		target := 0
		if !m.far {
			target = int(m.cfg.Axes[i].Speed) * 4 / (i + 1)
		}
		parts = append(parts, strings.ToUpper(m.cfg.Axes[i].Name)+strconv.Itoa(target))
	}
	m.far = !m.far
	return strings.Join(parts, " ")
}

func (m tuiModel) Init() tea.Cmd {
	return sample()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.disp.Group().EmergencyStop()
			return m, tea.Quit
		case "m":
			m.exec("G90")
			m.exec(m.moveLine(1))
		case "g":
			m.exec("G90")
			m.exec(m.moveLine(len(m.cfg.Axes)))
		case "r":
			speed := int(m.cfg.Axes[0].Speed)
			if m.reverse {
				speed = -speed
			}
			m.reverse = !m.reverse
			m.override = int32(speed)
			m.exec(fmt.Sprintf("M3 %s%d", strings.ToUpper(m.cfg.Axes[0].Name), speed))
		case "+", "-":
			step := int32(overrideStep)
			if msg.String() == "-" {
				step = -step
			}
			if m.override < 0 {
				step = -step
			}
			m.override += step
			m.exec(fmt.Sprintf("M220 S%d", m.override))
		case "s":
			m.exec("M5")
		case "e":
			m.exec("M112")
		}
		return m, nil

	case sampleMsg:
		m.pushSample()
		return m, sample()
	}
	return m, nil
}

// pushSample adds the step rate of every axis since the last sample
func (m *tuiModel) pushSample() {
	now := m.pool.Now()
	dt := (now - m.lastNow).Seconds()
	for i, ax := range m.disp.Group().Axes() {
		pulses := m.pins.Pulses(ax.StepPin())
		rate := 0.0
		if dt > 0 {
			rate = float64(pulses-m.lastPulses[i]) / dt
		}
		m.lastPulses[i] = pulses
		m.chart.PushDataSet(ax.Name(), rate)
	}
	m.lastNow = now
	m.chart.DrawAll()
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Simulation stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("steptui"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  virtual %.2fs", m.pool.Now().Seconds())))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderPanels())
	sb.WriteString("\n")
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 40))
	logLines := statusStyle.Render("m move  g all axes  r rotate  +/- override  s stop  e e-stop  q quit")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	return sb.String()
}

func (m tuiModel) renderPanels() string {
	var panels []string
	for i, ax := range m.disp.Group().Axes() {
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[i%len(axisColors)])).Bold(true).
			Render("━━ " + strings.ToUpper(ax.Name()))
		p := ax.Profile()
		body := fmt.Sprintf("%s %s\npos %d → %d\nv %d steps/s", name, p.Mode, ax.Position(), ax.Target(), ax.Velocity())
		if !p.Moving {
			body = fmt.Sprintf("%s idle\npos %d\n", name, ax.Position())
		}
		panels = append(panels, panelStyle.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}
