package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armsort/pkg/robot"
)

// goodSpan is the swept range, in servo ticks, a joint needs before it shows
// as explored.
const goodSpan = 500

var (
	motorCellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	currentCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	plainCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

type positioner interface {
	Position(ctx context.Context) (int, error)
}

// sweep tracks the positions a servo reported while moved by hand.
type sweep struct {
	cur, lo, hi int
}

func (s *sweep) observe(pos int) {
	s.cur = pos
	s.lo = min(s.lo, pos)
	s.hi = max(s.hi, pos)
}

func (s *sweep) span() int { return s.hi - s.lo }

type pollMsg time.Time

// calibrationModel polls the mirror motors until the user presses enter.
type calibrationModel struct {
	ctx    context.Context
	motors []robot.MotorName
	servos map[robot.MotorName]positioner
	sweeps map[robot.MotorName]*sweep
	done   bool
}

func newCalibrationModel(ctx context.Context, motors []robot.MotorName, servos map[robot.MotorName]positioner) calibrationModel {
	m := calibrationModel{
		ctx:    ctx,
		motors: motors,
		servos: servos,
		sweeps: make(map[robot.MotorName]*sweep, len(motors)),
	}
	for _, name := range motors {
		pos, _ := servos[name].Position(ctx)
		m.sweeps[name] = &sweep{cur: pos, lo: pos, hi: pos}
	}
	return m
}

func poll() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return poll()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}
	case pollMsg:
		for _, name := range m.motors {
			if pos, err := m.servos[name].Position(m.ctx); err == nil {
				m.sweeps[name].observe(pos)
			}
		}
		return m, poll()
	}
	return m, nil
}

// calibration returns the recorded ranges keyed by motor.
func (m calibrationModel) calibration() robot.Calibration {
	cal := make(robot.Calibration, len(m.motors))
	for _, name := range m.motors {
		s := m.sweeps[name]
		cal[name] = robot.MotorCalibration{ID: servoID(name), RangeMin: s.lo, RangeMax: s.hi}
	}
	return cal
}

func (m calibrationModel) View() string {
	if m.done {
		return ""
	}

	rows := make([][]string, 0, len(m.motors))
	for _, name := range m.motors {
		s := m.sweeps[name]
		rows = append(rows, []string{
			string(name),
			fmt.Sprint(s.cur),
			fmt.Sprint(s.lo),
			fmt.Sprint(s.hi),
			fmt.Sprint(s.span()),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return motorCellStyle
			case col == 1:
				return currentCellStyle
			case col == 4 && row >= 0 && row < len(m.motors):
				if m.sweeps[m.motors[row]].span() > goodSpan {
					return successStyle.Padding(0, 1)
				}
				return failStyle.Padding(0, 1)
			}
			return plainCellStyle
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
