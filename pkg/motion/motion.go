// Package motion moves joint angles toward a target at a bounded rate.
package motion

import (
	"math"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// Tolerance is the per-joint distance in radians under which a target counts
// as reached.
const Tolerance = 0.01

// DefaultMaxStep is the default angular speed in radians per tick.
const DefaultMaxStep = 0.05

// Step moves both joints toward target by at most maxStep each and reports
// whether both joints were already within Tolerance before moving.
func Step(current, target kinematics.Angles, maxStep float64) (kinematics.Angles, bool) {
	d1 := target.Shoulder - current.Shoulder
	d2 := target.Elbow - current.Elbow

	next := kinematics.Angles{
		Shoulder: approach(current.Shoulder, target.Shoulder, maxStep),
		Elbow:    approach(current.Elbow, target.Elbow, maxStep),
	}
	reached := math.Abs(d1) < Tolerance && math.Abs(d2) < Tolerance
	return next, reached
}

// Distance is the larger of the two joint distances to target.
func Distance(current, target kinematics.Angles) float64 {
	return math.Max(
		math.Abs(target.Shoulder-current.Shoulder),
		math.Abs(target.Elbow-current.Elbow),
	)
}

// TicksToReach returns how many calls to Step it takes, starting from
// current, until Step reports the target as reached.
func TicksToReach(current, target kinematics.Angles, maxStep float64) int {
	ticks := func(delta float64) int {
		delta = math.Abs(delta)
		if delta < Tolerance {
			return 1
		}
		// Step i sees a remaining delta of delta-(i-1)*maxStep.
		return int(math.Floor((delta-Tolerance)/maxStep)) + 2
	}
	return max(
		ticks(target.Shoulder-current.Shoulder),
		ticks(target.Elbow-current.Elbow),
	)
}

func approach(from, to, maxStep float64) float64 {
	delta := to - from
	if math.Abs(delta) <= maxStep {
		return to
	}
	return from + math.Copysign(maxStep, delta)
}
