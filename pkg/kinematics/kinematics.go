// Package kinematics solves forward and inverse kinematics for a planar
// two-link arm.
package kinematics

import (
	"errors"
	"math"

	"github.com/golang/geo/r2"
)

// ErrUnreachable is returned by Inverse when the target lies outside the
// annulus the arm can reach.
var ErrUnreachable = errors.New("target unreachable")

// Geometry describes the fixed shape of a two-link arm.
type Geometry struct {
	Base     r2.Point
	Segment1 float64
	Segment2 float64
}

// Angles holds the joint angles in radians. Shoulder is measured in the base
// frame, Elbow relative to the direction of the first segment.
type Angles struct {
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
}

// Pose is the position of the elbow joint and the end effector.
type Pose struct {
	Elbow r2.Point
	End   r2.Point
}

// MaxReach is the distance from the base to a fully stretched end effector.
func (g Geometry) MaxReach() float64 {
	return g.Segment1 + g.Segment2
}

// MinReach is the distance from the base to a fully folded end effector.
func (g Geometry) MinReach() float64 {
	return math.Abs(g.Segment1 - g.Segment2)
}

// Reachable reports whether target lies inside the reachable annulus.
// Both boundaries are reachable.
func (g Geometry) Reachable(target r2.Point) bool {
	d := target.Sub(g.Base).Norm()
	return d <= g.MaxReach() && d >= g.MinReach()
}

// Forward computes the elbow and end effector positions for the given angles.
func Forward(g Geometry, a Angles) Pose {
	elbow := g.Base.Add(polar(g.Segment1, a.Shoulder))
	end := elbow.Add(polar(g.Segment2, a.Shoulder+a.Elbow))
	return Pose{Elbow: elbow, End: end}
}

// Inverse computes joint angles that put the end effector on target.
// Only the elbow-down solution is returned.
func Inverse(target r2.Point, g Geometry) (Angles, error) {
	delta := target.Sub(g.Base)
	d := delta.Norm()
	if d > g.MaxReach() || d < g.MinReach() {
		return Angles{}, ErrUnreachable
	}

	s1, s2 := g.Segment1, g.Segment2
	cosElbow := (d*d - s1*s1 - s2*s2) / (2 * s1 * s2)
	// Clamp absorbs rounding at the reach boundary.
	elbow := -math.Acos(clamp(cosElbow, -1, 1))

	k1 := s1 + s2*math.Cos(elbow)
	k2 := s2 * math.Sin(elbow)
	shoulder := math.Atan2(delta.Y, delta.X) - math.Atan2(k2, k1)

	return Angles{Shoulder: shoulder, Elbow: elbow}, nil
}

func polar(length, angle float64) r2.Point {
	return r2.Point{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
