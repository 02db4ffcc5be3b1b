// Package world holds the state of the sorting cell: the arm, the objects to
// sort, the destination zones and the per-color sorted counts.
//
// All mutation goes through the methods in mutators.go, which the task state
// machine calls once per tick. Presentation code reads a Snapshot.
package world

import (
	"fmt"
	"math/rand/v2"

	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// ObjectID refers to an object of one batch. Gen changes on every reset, so an
// ID taken before a reset no longer resolves.
type ObjectID struct {
	Gen   uint32 `json:"gen"`
	Index int    `json:"index"`
}

// Object is a box waiting to be sorted or already placed.
type Object struct {
	ID     ObjectID
	Color  Color
	Pos    r2.Point // top-left corner
	Size   r2.Point
	Sorted bool
}

// Bounds returns the rectangle covered by the object.
func (o Object) Bounds() r2.Rect {
	return r2.RectFromPoints(o.Pos, o.Pos.Add(o.Size))
}

// Center returns the center of the object.
func (o Object) Center() r2.Point {
	return o.Bounds().Center()
}

// Zone is the destination rectangle for one color.
type Zone struct {
	Color  Color
	Bounds r2.Rect
}

// Arm is the manipulator state.
type Arm struct {
	Geometry    kinematics.Geometry
	Angles      kinematics.Angles
	GripperOpen bool
}

// World owns the arm, the objects and the zones.
type World struct {
	layout Layout
	rng    *rand.Rand

	gen     uint32
	arm     Arm
	held    ObjectID
	holding bool
	objects []Object
	zones   []Zone
	staging r2.Rect
	counts  SortedCounts
}

// Seeded returns a deterministic random source for New.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New validates layout and creates a world with a fresh object batch.
// Object colors are drawn from rng.
func New(layout Layout, rng *rand.Rand) (*World, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	w := &World{
		layout:  layout,
		rng:     rng,
		staging: layout.Staging.Bounds(),
		arm:     Arm{Geometry: layout.Geometry()},
	}
	for _, z := range layout.Zones {
		w.zones = append(w.zones, Zone{Color: z.Color, Bounds: z.Rect.Bounds()})
	}
	w.populate()
	return w, nil
}

// Reset discards the current batch and restores the arm to its home pose with
// the gripper open. IDs from before the reset stop resolving.
func (w *World) Reset() {
	w.gen++
	w.populate()
}

func (w *World) populate() {
	w.arm.Angles = w.layout.Home()
	w.arm.GripperOpen = true
	w.held = ObjectID{}
	w.holding = false
	w.counts = zeroCounts(w.layout.Palette)

	palette := w.layout.Palette
	batch := w.layout.batch(func() Color {
		return palette[w.rng.IntN(len(palette))]
	})

	w.objects = make([]Object, len(batch))
	for i, b := range batch {
		w.objects[i] = Object{
			ID:    ObjectID{Gen: w.gen, Index: i},
			Color: b.color,
			Pos:   b.pos,
			Size:  w.layout.BoxSize.Point(),
		}
	}
}

// Layout returns the layout the world was built from.
func (w *World) Layout() Layout { return w.layout }

// Arm returns the current arm state.
func (w *World) Arm() Arm { return w.arm }

// Pose returns the current elbow and end effector positions.
func (w *World) Pose() kinematics.Pose {
	return kinematics.Forward(w.arm.Geometry, w.arm.Angles)
}

// Held returns the object in the gripper, if any.
func (w *World) Held() (ObjectID, bool) { return w.held, w.holding }

// Object resolves id against the current batch.
func (w *World) Object(id ObjectID) (Object, bool) {
	o := w.lookup(id)
	if o == nil {
		return Object{}, false
	}
	return *o, true
}

// Objects returns a copy of all objects in creation order.
func (w *World) Objects() []Object {
	out := make([]Object, len(w.objects))
	copy(out, w.objects)
	return out
}

// Zones returns the destination zones.
func (w *World) Zones() []Zone {
	out := make([]Zone, len(w.zones))
	copy(out, w.zones)
	return out
}

// Staging returns the staging area rectangle.
func (w *World) Staging() r2.Rect { return w.staging }

// Counts returns a copy of the sorted counts.
func (w *World) Counts() SortedCounts { return w.counts.Clone() }

// Generation returns the current batch generation.
func (w *World) Generation() uint32 { return w.gen }

func (w *World) lookup(id ObjectID) *Object {
	if id.Gen != w.gen || id.Index < 0 || id.Index >= len(w.objects) {
		return nil
	}
	return &w.objects[id.Index]
}
