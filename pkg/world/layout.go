package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/kinematics"
)

// Vec is a 2D vector as it appears in configuration files.
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Point converts v to an r2.Point.
func (v Vec) Point() r2.Point { return r2.Point{X: v.X, Y: v.Y} }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Bounds converts r to an r2.Rect.
func (r Rect) Bounds() r2.Rect {
	return r2.RectFromPoints(r2.Point{X: r.X, Y: r.Y}, r2.Point{X: r.X + r.W, Y: r.Y + r.H})
}

// ZoneSpec places the destination zone for one color.
type ZoneSpec struct {
	Color Color `json:"color" yaml:"color"`
	Rect  Rect  `json:"rect" yaml:"rect"`
}

// ObjectSpec pins one object of a batch to a color and top-left position.
type ObjectSpec struct {
	Color Color   `json:"color" yaml:"color"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// Layout is the static description of a scene: arm geometry, zones, the
// staging area and the policy used to generate each object batch.
type Layout struct {
	Base         Vec     `json:"base" yaml:"base"`
	Segment1     float64 `json:"segment1" yaml:"segment1"`
	Segment2     float64 `json:"segment2" yaml:"segment2"`
	HomeShoulder float64 `json:"home_shoulder" yaml:"home_shoulder"`
	HomeElbow    float64 `json:"home_elbow" yaml:"home_elbow"`

	Palette []Color    `json:"palette" yaml:"palette"`
	Zones   []ZoneSpec `json:"zones" yaml:"zones"`
	Staging Rect       `json:"staging" yaml:"staging"`

	// Random batch: Objects boxes on a grid of Columns starting at Origin.
	Objects int `json:"objects" yaml:"objects"`
	Columns int `json:"columns" yaml:"columns"`
	Origin  Vec `json:"origin" yaml:"origin"`
	Pitch   Vec `json:"pitch" yaml:"pitch"`
	BoxSize Vec `json:"box_size" yaml:"box_size"`

	// Fixed replaces the random batch when non-empty.
	Fixed []ObjectSpec `json:"fixed,omitempty" yaml:"fixed,omitempty"`

	// Packing grid inside a zone.
	SlotMargin float64 `json:"slot_margin" yaml:"slot_margin"`
	SlotPitch  float64 `json:"slot_pitch" yaml:"slot_pitch"`
}

// DefaultLayout returns the stock scene: four colored zones along the bottom
// left and a 3x4 staging grid on the right, all within reach of the arm.
func DefaultLayout() Layout {
	return Layout{
		Base:         Vec{X: 400, Y: 560},
		Segment1:     200,
		Segment2:     180,
		HomeShoulder: -math.Pi / 4,
		HomeElbow:    -math.Pi / 3,
		Palette:      DefaultPalette(),
		Zones: []ZoneSpec{
			{Color: Red, Rect: Rect{X: 50, Y: 450, W: 80, H: 80}},
			{Color: Blue, Rect: Rect{X: 150, Y: 450, W: 80, H: 80}},
			{Color: Green, Rect: Rect{X: 250, Y: 450, W: 80, H: 80}},
			{Color: Yellow, Rect: Rect{X: 350, Y: 450, W: 80, H: 80}},
		},
		Staging:    Rect{X: 600, Y: 400, W: 150, H: 130},
		Objects:    12,
		Columns:    3,
		Origin:     Vec{X: 610, Y: 410},
		Pitch:      Vec{X: 45, Y: 35},
		BoxSize:    Vec{X: 30, Y: 30},
		SlotMargin: 10,
		SlotPitch:  35,
	}
}

// Geometry returns the arm geometry of the layout.
func (l Layout) Geometry() kinematics.Geometry {
	return kinematics.Geometry{
		Base:     l.Base.Point(),
		Segment1: l.Segment1,
		Segment2: l.Segment2,
	}
}

// Home returns the joint angles the arm starts from.
func (l Layout) Home() kinematics.Angles {
	return kinematics.Angles{Shoulder: l.HomeShoulder, Elbow: l.HomeElbow}
}

// Validate checks the configuration invariants the world relies on.
func (l Layout) Validate() error {
	var errs []error
	if l.Segment1 <= 0 || l.Segment2 <= 0 {
		errs = append(errs, fmt.Errorf("segment lengths must be positive (got %g, %g)", l.Segment1, l.Segment2))
	}
	if len(l.Palette) == 0 {
		errs = append(errs, errors.New("palette is empty"))
	}

	seen := make(map[Color]bool, len(l.Zones))
	for _, z := range l.Zones {
		if seen[z.Color] {
			errs = append(errs, fmt.Errorf("duplicate zone for %s", z.Color))
		}
		seen[z.Color] = true
		if z.Rect.W <= 0 || z.Rect.H <= 0 {
			errs = append(errs, fmt.Errorf("zone %s has empty rectangle", z.Color))
		}
	}
	for _, c := range l.Palette {
		if !seen[c] {
			errs = append(errs, fmt.Errorf("no zone for palette color %s", c))
		}
	}

	if len(l.Fixed) == 0 {
		if l.Objects < 0 {
			errs = append(errs, fmt.Errorf("object count must not be negative (got %d)", l.Objects))
		}
		if l.Objects > 0 && l.Columns <= 0 {
			errs = append(errs, fmt.Errorf("columns must be positive (got %d)", l.Columns))
		}
	}
	for i, o := range l.Fixed {
		if !seen[o.Color] {
			errs = append(errs, fmt.Errorf("fixed object %d has color %s without a zone", i, o.Color))
		}
	}
	if l.BoxSize.X <= 0 || l.BoxSize.Y <= 0 {
		errs = append(errs, errors.New("box size must be positive"))
	}
	if l.SlotPitch <= 0 {
		errs = append(errs, errors.New("slot pitch must be positive"))
	}

	return errors.Join(errs...)
}

// Unreachable lists the pickup and drop-off points of the layout that fall
// outside the arm's reach. hover is the height above a zone's center the arm
// releases from.
func (l Layout) Unreachable(hover float64) []r2.Point {
	g := l.Geometry()
	half := l.BoxSize.Point().Mul(0.5)

	var out []r2.Point
	for _, spec := range l.batch(nil) {
		if p := spec.pos.Add(half); !g.Reachable(p) {
			out = append(out, p)
		}
	}
	for _, z := range l.Zones {
		if p := ApproachPoint(z.Rect.Bounds(), hover); !g.Reachable(p) {
			out = append(out, p)
		}
	}
	return out
}

type placed struct {
	color Color
	pos   r2.Point
}

// batch lays out a fresh set of objects. Colors are drawn from pick; a nil
// pick leaves colors empty for callers that only need positions.
func (l Layout) batch(pick func() Color) []placed {
	if len(l.Fixed) > 0 {
		out := make([]placed, len(l.Fixed))
		for i, o := range l.Fixed {
			out[i] = placed{color: o.Color, pos: r2.Point{X: o.X, Y: o.Y}}
		}
		return out
	}

	out := make([]placed, l.Objects)
	for i := range out {
		col, row := i%l.Columns, i/l.Columns
		out[i].pos = l.Origin.Point().Add(r2.Point{
			X: float64(col) * l.Pitch.X,
			Y: float64(row) * l.Pitch.Y,
		})
		if pick != nil {
			out[i].color = pick()
		}
	}
	return out
}

// ApproachPoint is the point above a zone's center, offset upward by hover,
// from which a held object is released.
func ApproachPoint(zone r2.Rect, hover float64) r2.Point {
	c := zone.Center()
	return r2.Point{X: c.X, Y: c.Y - hover}
}
