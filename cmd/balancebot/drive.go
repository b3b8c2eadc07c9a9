package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/goocto/balancebot/pkg/drive"
	"github.com/goocto/balancebot/pkg/robot"
)

type DriveCommand struct {
	Hz       int            `long:"hz" description:"Control loop frequency (overrides config)"`
	Watchdog *time.Duration `long:"watchdog" description:"Stop the wheels if the UI stops sending commands for this long, 0 disables (overrides config)"`
	Ramp     int            `long:"ramp" description:"Max speed change per tick, 0 for none (overrides config)"`
	Step     float64        `long:"step" default:"0.1" description:"Throttle/steering change per key press"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border

	heartbeat = 100 * time.Millisecond
)

// Wheel colors
var wheelColors = map[string]string{
	"left":  "196", // red
	"right": "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type driveModel struct {
	ctrl     *drive.Controller
	chart    *streamlinechart.Model
	limit    int
	step     float64
	throttle float64
	steering float64
	applied  drive.State
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg drive.State
type logMsg string
type heartbeatMsg time.Time

func waitForState(ctrl *drive.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *drive.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func tickHeartbeat() tea.Cmd {
	return tea.Tick(heartbeat, func(t time.Time) tea.Msg {
		return heartbeatMsg(t)
	})
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialDriveModel(ctrl *drive.Controller, limit int, step float64) driveModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(float64(-limit), float64(limit)),
	)
	for name, color := range wheelColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return driveModel{
		ctrl:  ctrl,
		chart: &chart,
		limit: limit,
		step:  step,
	}
}

// command sends the current throttle and steering to the controller.
func (m *driveModel) command() {
	m.ctrl.Command(drive.Mix(m.throttle, m.steering, m.limit))
}

func nudge(v, delta float64) float64 {
	return min(max(v+delta, -1), 1)
}

func (m driveModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		tickHeartbeat(),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.throttle, m.steering = 0, 0
			m.command()
			return m, tea.Quit
		case "up", "w":
			m.throttle = nudge(m.throttle, m.step)
		case "down", "s":
			m.throttle = nudge(m.throttle, -m.step)
		case "left", "a":
			m.steering = nudge(m.steering, -m.step)
		case "right", "d":
			m.steering = nudge(m.steering, m.step)
		case " ":
			m.throttle, m.steering = 0, 0
		default:
			return m, nil
		}
		m.command()
		return m, nil

	case heartbeatMsg:
		// Keep the watchdog fed while the UI is alive
		m.command()
		return m, tickHeartbeat()

	case stateMsg:
		state := drive.State(msg)
		if state.Error == nil {
			m.applied = state
			m.chart.PushDataSet("left", float64(state.Left))
			m.chart.PushDataSet("right", float64(state.Right))
			m.chart.DrawAll()
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Drive stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("balancebot drive"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  throttle %+.1f  steering %+.1f  L %+4d  R %+4d",
		m.throttle, m.steering, m.applied.Left, m.applied.Right)))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Arrows/WASD to drive, space to stop, 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{"left", "right"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(wheelColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

// apply copies the flags that were given over the loaded drive config.
func (c *DriveCommand) apply(cfg *drive.Config) error {
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Watchdog != nil {
		if *c.Watchdog < 0 {
			return fmt.Errorf("--watchdog must not be negative, got %v", *c.Watchdog)
		}
		cfg.Watchdog = drive.Duration(*c.Watchdog)
	}
	if c.Ramp > 0 {
		cfg.Ramp = c.Ramp
	}
	if c.Step <= 0 || c.Step > 1 {
		return fmt.Errorf("--step must be in (0, 1], got %v", c.Step)
	}
	return nil
}

func (c *DriveCommand) Execute(args []string) error {
	cfg := loadConfig()
	if err := c.apply(&cfg.Drive); err != nil {
		return err
	}

	r, err := robot.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.WithError(err).Warn("close robot")
		}
	}()

	ctrl := drive.NewController(r, cfg.Drive)

	// Logging to the terminal would tear the TUI
	log.SetLevel(log.WarnLevel)

	// Start controller in background
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("controller stopped")
		}
	}()

	// Run TUI
	p := tea.NewProgram(initialDriveModel(ctrl, r.MaxMagnitude(), c.Step), tea.WithAltScreen())
	_, err = p.Run()

	cancel()
	<-done
	return err
}
