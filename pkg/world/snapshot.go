package world

import (
	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// ArmView is the arm as presentation code sees it.
type ArmView struct {
	Base        r2.Point
	Elbow       r2.Point
	End         r2.Point
	Angles      kinematics.Angles
	GripperOpen bool
	Held        *ObjectID
}

// Snapshot is an immutable copy of the world taken between ticks.
type Snapshot struct {
	Generation uint32
	Arm        ArmView
	Objects    []Object
	Zones      []Zone
	Staging    r2.Rect
	Counts     SortedCounts
}

// Snapshot copies the current state for read-only consumers.
func (w *World) Snapshot() Snapshot {
	pose := w.Pose()
	view := ArmView{
		Base:        w.arm.Geometry.Base,
		Elbow:       pose.Elbow,
		End:         pose.End,
		Angles:      w.arm.Angles,
		GripperOpen: w.arm.GripperOpen,
	}
	if w.holding {
		id := w.held
		view.Held = &id
	}

	return Snapshot{
		Generation: w.gen,
		Arm:        view,
		Objects:    w.Objects(),
		Zones:      w.Zones(),
		Staging:    w.staging,
		Counts:     w.Counts(),
	}
}

// SortedObjects returns how many objects in the snapshot are flagged sorted.
func (s Snapshot) SortedObjects() int {
	n := 0
	for _, o := range s.Objects {
		if o.Sorted {
			n++
		}
	}
	return n
}
