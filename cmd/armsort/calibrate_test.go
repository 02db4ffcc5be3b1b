package main

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armsort/pkg/robot"
)

// scriptedServo reports positions from a list, then an error.
type scriptedServo struct {
	positions []int
}

func (s *scriptedServo) Position(context.Context) (int, error) {
	if len(s.positions) == 0 {
		return 0, errors.New("no reply")
	}
	pos := s.positions[0]
	s.positions = s.positions[1:]
	return pos, nil
}

func TestCalibrationModel_RecordsSweptRange(t *testing.T) {
	servos := map[robot.MotorName]positioner{
		robot.ShoulderLift: &scriptedServo{positions: []int{2048, 1500, 2600, 2100}},
		robot.ElbowFlex:    &scriptedServo{positions: []int{1000, 1200}},
		robot.Gripper:      &scriptedServo{positions: []int{1800}},
	}
	var m tea.Model = newCalibrationModel(context.Background(), robot.MirrorMotors(), servos)

	for range 3 {
		var cmd tea.Cmd
		m, cmd = m.Update(pollMsg{})
		require.NotNil(t, cmd, "polling continues")
	}

	cal := m.(calibrationModel).calibration()
	assert.Equal(t, robot.MotorCalibration{ID: 2, RangeMin: 1500, RangeMax: 2600}, cal[robot.ShoulderLift])
	assert.Equal(t, robot.MotorCalibration{ID: 3, RangeMin: 1000, RangeMax: 1200}, cal[robot.ElbowFlex])
	// A servo that stops answering keeps its last reading.
	assert.Equal(t, robot.MotorCalibration{ID: 6, RangeMin: 1800, RangeMax: 1800}, cal[robot.Gripper])

	assert.Contains(t, m.View(), "shoulder_lift")
}

func TestCalibrationModel_EnterQuits(t *testing.T) {
	servos := map[robot.MotorName]positioner{
		robot.ShoulderLift: &scriptedServo{positions: []int{1}},
		robot.ElbowFlex:    &scriptedServo{positions: []int{2}},
		robot.Gripper:      &scriptedServo{positions: []int{3}},
	}
	m := newCalibrationModel(context.Background(), robot.MirrorMotors(), servos)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}

func TestSweep(t *testing.T) {
	s := sweep{cur: 100, lo: 100, hi: 100}
	for _, pos := range []int{80, 140, 120} {
		s.observe(pos)
	}
	assert.Equal(t, sweep{cur: 120, lo: 80, hi: 140}, s)
	assert.Equal(t, 60, s.span())
}

func TestIsSOArm(t *testing.T) {
	servos := func(ids ...int) []feetech.FoundServo {
		out := make([]feetech.FoundServo, len(ids))
		for i, id := range ids {
			out[i] = feetech.FoundServo{ID: id}
		}
		return out
	}

	tests := []struct {
		name   string
		servos []feetech.FoundServo
		want   bool
	}{
		{"full arm", servos(1, 2, 3, 4, 5, 6), true},
		{"any order", servos(6, 5, 4, 3, 2, 1), true},
		{"missing gripper", servos(1, 2, 3, 4, 5), false},
		{"duplicate id", servos(1, 2, 3, 4, 5, 5), false},
		{"none", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSOArm(tt.servos))
		})
	}
}
