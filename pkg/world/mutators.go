package world

import (
	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// NextUnsorted returns the first unsorted object in creation order.
func (w *World) NextUnsorted() (ObjectID, bool) {
	for _, o := range w.objects {
		if !o.Sorted {
			return o.ID, true
		}
	}
	return ObjectID{}, false
}

// ZoneFor returns the zone for color c.
func (w *World) ZoneFor(c Color) (Zone, bool) {
	for _, z := range w.zones {
		if z.Color == c {
			return z, true
		}
	}
	return Zone{}, false
}

// SetAngles moves the arm joints.
func (w *World) SetAngles(a kinematics.Angles) {
	w.arm.Angles = a
}

// OpenGripper opens the gripper.
func (w *World) OpenGripper() { w.arm.GripperOpen = true }

// CloseGripper closes the gripper.
func (w *World) CloseGripper() { w.arm.GripperOpen = false }

// MarkSorted flags an object as sorted. It reports false if id is stale or
// the object was already sorted.
func (w *World) MarkSorted(id ObjectID) bool {
	o := w.lookup(id)
	if o == nil || o.Sorted {
		return false
	}
	o.Sorted = true
	return true
}

// Attach puts an object in the gripper. The gripper must be closed and empty.
func (w *World) Attach(id ObjectID) bool {
	if w.arm.GripperOpen || w.holding || w.lookup(id) == nil {
		return false
	}
	w.held = id
	w.holding = true
	return true
}

// Detach empties the gripper and returns what it held.
func (w *World) Detach() (ObjectID, bool) {
	if !w.holding {
		return ObjectID{}, false
	}
	id := w.held
	w.held = ObjectID{}
	w.holding = false
	return id, true
}

// FollowEffector centers the held object on the end effector.
func (w *World) FollowEffector() {
	if !w.holding {
		return
	}
	o := w.lookup(w.held)
	if o == nil {
		return
	}
	end := w.Pose().End
	o.Pos = end.Sub(o.Size.Mul(0.5))
}

// PlaceInZone moves an object into the next free slot of the zone for color
// and returns its new top-left position. Slots fill a two-column grid row by
// row, so the n-th object of a color lands in the same slot on every run.
func (w *World) PlaceInZone(id ObjectID, color Color) (r2.Point, bool) {
	o := w.lookup(id)
	if o == nil {
		return r2.Point{}, false
	}
	zone, ok := w.ZoneFor(color)
	if !ok {
		return r2.Point{}, false
	}

	n := w.residents(zone, id)
	o.Pos = SlotPosition(zone.Bounds, n, w.layout.SlotMargin, w.layout.SlotPitch)
	return o.Pos, true
}

// RecordSorted counts one placed object of color c.
func (w *World) RecordSorted(c Color) {
	w.counts[c]++
}

// residents counts objects of the zone's color whose left edge lies in the
// zone's column span, not including skip. Rows past capacity extend below the
// zone, so only the X extent is checked.
func (w *World) residents(zone Zone, skip ObjectID) int {
	n := 0
	for _, o := range w.objects {
		if o.ID == skip || o.Color != zone.Color {
			continue
		}
		if o.Pos.X >= zone.Bounds.X.Lo && o.Pos.X < zone.Bounds.X.Hi {
			n++
		}
	}
	return n
}

// SlotPosition returns the top-left corner of slot n in a zone.
func SlotPosition(zone r2.Rect, n int, margin, pitch float64) r2.Point {
	col, row := n%2, n/2
	return zone.Lo().Add(r2.Point{
		X: margin + float64(col)*pitch,
		Y: margin + float64(row)*pitch,
	})
}

// Capacity is the number of boxes of the given size that fit in a zone
// without leaving it or overlapping.
func Capacity(zone r2.Rect, box r2.Point, margin, pitch float64) int {
	fit := func(extent, size float64) int {
		n := 0
		for margin+float64(n)*pitch+size <= extent {
			n++
		}
		return n
	}
	cols, rows := fit(zone.X.Length(), box.X), fit(zone.Y.Length(), box.Y)
	if cols < 2 {
		// Only slot 0 sits in the first column before the grid wraps.
		return min(cols, rows, 1)
	}
	return 2 * rows
}
