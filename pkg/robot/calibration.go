package robot

import "math"

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id" yaml:"id"`
	DriveMode    int `json:"drive_mode" yaml:"drive_mode"`
	HomingOffset int `json:"homing_offset" yaml:"homing_offset"`
	RangeMin     int `json:"range_min" yaml:"range_min"`
	RangeMax     int `json:"range_max" yaml:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// MotorIDs returns the servo IDs for the given motors that have calibration,
// in the order given.
func (c Calibration) MotorIDs(motors ...MotorName) []int {
	if len(motors) == 0 {
		motors = AllMotors()
	}
	ids := make([]int, 0, len(motors))
	for _, name := range motors {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// JointRange maps a simulated joint angle in radians onto the servo's
// normalized range: Min lands on -100 and Max on 100.
type JointRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Normalize converts an angle to [-100, 100], clamping outside the range.
func (r JointRange) Normalize(angle float64) float64 {
	span := r.Max - r.Min
	if span == 0 {
		return 0
	}
	norm := (angle-r.Min)/span*200 - 100
	return math.Max(-100, math.Min(100, norm))
}

// Joints describes how the simulated arm maps onto servo motion.
type Joints struct {
	Shoulder JointRange `json:"shoulder" yaml:"shoulder"`
	Elbow    JointRange `json:"elbow" yaml:"elbow"`
	// Normalized gripper positions.
	GripperOpen   float64 `json:"gripper_open" yaml:"gripper_open"`
	GripperClosed float64 `json:"gripper_closed" yaml:"gripper_closed"`
}

// DefaultJoints maps both joints over a full turn centered on zero.
func DefaultJoints() Joints {
	return Joints{
		Shoulder:      JointRange{Min: -math.Pi, Max: math.Pi},
		Elbow:         JointRange{Min: -math.Pi, Max: math.Pi},
		GripperOpen:   60,
		GripperClosed: -20,
	}
}
