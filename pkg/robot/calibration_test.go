package robot

import (
	"math"
	"testing"

	"github.com/gwillem/armsort/pkg/kinematics"
)

func TestMotorCalibration_Normalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},  // quarter -> -50
		{2500, 50.0},   // three-quarter -> 50
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Denormalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		norm     float64
		expected int
	}{
		{-100.0, 1000}, // -100 -> min
		{100.0, 3000},  // 100 -> max
		{0.0, 2000},    // 0 -> mid
		{-50.0, 1500},  // -50 -> quarter
		{50.0, 2500},   // 50 -> three-quarter
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.norm)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.norm, got, tt.expected)
		}
	}
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	// Test round-trip: raw -> normalized -> raw
	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		norm := cal.Normalize(raw)
		back := cal.Denormalize(norm)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, norm, back)
		}
	}
}

func TestCalibration_MotorIDs(t *testing.T) {
	cal := Calibration{
		ShoulderPan:  MotorCalibration{ID: 1},
		ShoulderLift: MotorCalibration{ID: 2},
		ElbowFlex:    MotorCalibration{ID: 3},
		WristFlex:    MotorCalibration{ID: 4},
		WristRoll:    MotorCalibration{ID: 5},
		Gripper:      MotorCalibration{ID: 6},
	}

	ids := cal.MotorIDs()
	expected := []int{1, 2, 3, 4, 5, 6}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_MirrorMotorIDs(t *testing.T) {
	cal := Calibration{
		ShoulderPan:  MotorCalibration{ID: 1},
		ShoulderLift: MotorCalibration{ID: 2},
		ElbowFlex:    MotorCalibration{ID: 3},
		Gripper:      MotorCalibration{ID: 6},
	}

	ids := cal.MotorIDs(MirrorMotors()...)
	expected := []int{2, 3, 6}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestJointRange_Normalize(t *testing.T) {
	r := JointRange{Min: -math.Pi, Max: math.Pi}

	tests := []struct {
		angle    float64
		expected float64
	}{
		{-math.Pi, -100.0},
		{math.Pi, 100.0},
		{0, 0.0},
		{math.Pi / 2, 50.0},
		{-2 * math.Pi, -100.0}, // clamped
		{4, 100.0},             // clamped
	}

	for _, tt := range tests {
		got := r.Normalize(tt.angle)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%f) = %f, want %f", tt.angle, got, tt.expected)
		}
	}

	if got := (JointRange{Min: 1, Max: 1}).Normalize(3); got != 0 {
		t.Errorf("empty range Normalize = %f, want 0", got)
	}
}

func TestJoints_Positions(t *testing.T) {
	j := DefaultJoints()

	open := j.Positions(kinematics.Angles{Shoulder: math.Pi / 2, Elbow: -math.Pi / 2}, true)
	if math.Abs(open[ShoulderLift]-50) > 0.001 {
		t.Errorf("shoulder_lift = %f, want 50", open[ShoulderLift])
	}
	if math.Abs(open[ElbowFlex]+50) > 0.001 {
		t.Errorf("elbow_flex = %f, want -50", open[ElbowFlex])
	}
	if open[Gripper] != j.GripperOpen {
		t.Errorf("gripper = %f, want %f", open[Gripper], j.GripperOpen)
	}

	closed := j.Positions(kinematics.Angles{}, false)
	if closed[Gripper] != j.GripperClosed {
		t.Errorf("gripper = %f, want %f", closed[Gripper], j.GripperClosed)
	}
	if _, ok := closed[WristRoll]; ok {
		t.Error("wrist_roll should not be driven")
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		ShoulderPan: MotorCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		Gripper:     MotorCalibration{ID: 6, RangeMin: 300, RangeMax: 400},
	}

	// Test finding existing ID
	name, mc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if name != ShoulderPan {
		t.Errorf("ByID(1) returned name %s, want shoulder_pan", name)
	}
	if mc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", mc)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}
