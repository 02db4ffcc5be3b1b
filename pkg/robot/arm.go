package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// Arm is a physical follower arm that mirrors the simulated joints.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	joints      Joints
}

// NewArm opens the serial bus of a configured follower arm.
func NewArm(cfg ArmConfig) (*Arm, error) {
	if !cfg.IsCalibrated() {
		return nil, fmt.Errorf("arm on %s is not calibrated", cfg.Port)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := cfg.Calibration.MotorIDs(MirrorMotors()...)
	group := feetech.NewServoGroupByIDs(bus, ids...)

	return &Arm{
		bus:         bus,
		group:       group,
		calibration: cfg.Calibration,
		joints:      cfg.Joints,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on the mirrored servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on the mirrored servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// WriteJoints moves the servos to match the simulated arm.
func (a *Arm) WriteJoints(ctx context.Context, angles kinematics.Angles, gripperOpen bool) error {
	return a.WritePositions(ctx, a.joints.Positions(angles, gripperOpen))
}

// WritePositions writes target positions to the motors.
// Takes normalized positions in the range [-100, 100].
func (a *Arm) WritePositions(ctx context.Context, positions map[MotorName]float64) error {
	rawPositions := make(feetech.PositionMap, len(positions))
	for name, norm := range positions {
		cal, ok := a.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.Denormalize(norm)
	}

	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}

	return nil
}

// Positions returns the normalized motor targets for a simulated pose.
func (j Joints) Positions(angles kinematics.Angles, gripperOpen bool) map[MotorName]float64 {
	gripper := j.GripperClosed
	if gripperOpen {
		gripper = j.GripperOpen
	}
	return map[MotorName]float64{
		ShoulderLift: j.Shoulder.Normalize(angles.Shoulder),
		ElbowFlex:    j.Elbow.Normalize(angles.Elbow),
		Gripper:      gripper,
	}
}
