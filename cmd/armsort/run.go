package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armsort/pkg/kinematics"
	"github.com/gwillem/armsort/pkg/sim"
)

type RunCommand struct {
	Hz       int    `long:"hz" description:"Tick frequency (overrides config)"`
	Seed     uint64 `long:"seed" description:"Color seed (overrides config)"`
	NoMirror bool   `long:"no-mirror" description:"Do not drive the configured mirror arm"`
	LogFile  string `long:"log-file" description:"Write structured logs to this file"`
	Start    bool   `long:"start" description:"Start sorting immediately"`
}

const (
	headerHeight = 2 // title + blank line
	chartHeight  = 8
	footerHeight = 8 // log box + help
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	panelWidth   = 30
)

var angleColors = map[string]string{
	"shoulder": "208", // orange
	"elbow":    "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type keyMap struct {
	Start key.Binding
	Pause key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Start: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type runModel struct {
	ctrl       *sim.Controller
	scene      *canvas.Model
	chart      *streamlinechart.Model
	help       help.Model
	snap       sim.Snapshot
	width      int // terminal width
	height     int // terminal height
	logs       []string
	quitting   bool
	lastAngles *kinematics.Angles // freeze the chart while the arm is still
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg sim.Snapshot
type logMsg string

func waitForState(ctrl *sim.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *sim.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// sceneSize calculates the scene canvas size from the terminal dimensions.
func (m *runModel) sceneSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 24 // default size before we know terminal size
	}
	width = m.width - panelWidth - 2*borderSize
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - chartHeight - footerHeight - 2*borderSize
	if height < 12 {
		height = 12
	}
	return width, height
}

func (m *runModel) resize() {
	w, h := m.sceneSize()
	m.scene.Resize(w, h)
	m.chart.Resize(w+panelWidth, chartHeight)
	drawScene(m.scene, w, h, m.snap)
	m.chart.DrawAll()
}

func initialRunModel(ctrl *sim.Controller) runModel {
	chart := streamlinechart.New(80, chartHeight,
		streamlinechart.WithYRange(-math.Pi, math.Pi),
	)
	for name, color := range angleColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	scene := canvas.New(80, 24)
	snap := ctrl.Snapshot()
	drawScene(&scene, 80, 24, snap)

	return runModel{
		ctrl:  ctrl,
		scene: &scene,
		chart: &chart,
		help:  help.New(),
		snap:  snap,
	}
}

func (m runModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			m.ctrl.Run()
		case key.Matches(msg, keys.Pause):
			m.ctrl.Pause()
		case key.Matches(msg, keys.Reset):
			m.ctrl.Reset()
		}
		return m, nil

	case stateMsg:
		m.snap = sim.Snapshot(msg)
		angles := m.snap.Arm.Angles
		// Only update chart if there's movement (freeze when idle)
		if m.lastAngles == nil || *m.lastAngles != angles {
			m.chart.PushDataSet("shoulder", angles.Shoulder)
			m.chart.PushDataSet("elbow", angles.Elbow)
			m.chart.DrawAll()
			m.lastAngles = &angles
		}
		w, h := m.sceneSize()
		drawScene(m.scene, w, h, m.snap)
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Sorting stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armsort"))
	sb.WriteString(fmt.Sprintf(" - %d Hz, seed %d", m.ctrl.Hz(), m.ctrl.Seed()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Scene and side panel
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		chartStyle.Render(m.scene.View()),
		m.renderPanel(),
	))
	sb.WriteString("\n")

	// Joint angle chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 's' to start sorting")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))

	return sb.String()
}

func (m runModel) renderPanel() string {
	s := m.snap

	rows := make([][]string, 0, len(s.Zones)+1)
	for _, z := range s.Zones {
		rows = append(rows, []string{
			colorStyle(z.Color).Render("■ " + string(z.Color)),
			fmt.Sprintf("%d", s.Counts[z.Color]),
		})
	}
	rows = append(rows, []string{"total", fmt.Sprintf("%d / %d", s.Counts.Total(), len(s.Objects))})

	counts := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers("Zone", "Sorted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	state := "paused"
	if s.Running {
		state = "running"
	}
	var task string
	if s.Task != nil {
		task = fmt.Sprintf("box #%d → %s", s.Task.Object.Index, s.Task.Zone)
	}

	lines := []string{
		counts.Render(),
		"",
		phaseStyle.Render(s.Phase.String()),
		statusStyle.Render(fmt.Sprintf("%s, tick %d, batch %d", state, s.Tick, s.Generation)),
		task,
	}
	return lipgloss.NewStyle().Width(panelWidth).PaddingLeft(1).Render(strings.Join(lines, "\n"))
}

func renderLegend() string {
	var items []string
	for _, name := range []string{"shoulder", "elbow"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(angleColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, found, err := loadConfig()
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("Loaded configuration from %s\n", opts.Config)
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Seed != 0 {
		cfg.Seed = c.Seed
	}

	var logOut io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	cl, err := openCell(cfg, cellOptions{
		mirror: !c.NoMirror,
		logger: newLogger(logOut, false, false),
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}
	defer cl.Close()

	// Start controller in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cl.ctl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()
	if c.Start {
		cl.ctl.Run()
	}

	// Run TUI
	p := tea.NewProgram(initialRunModel(cl.ctl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	// Let the loop release the mirror arm before its bus closes.
	cancel()
	<-done
	return nil
}
