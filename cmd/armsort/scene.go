package main

import (
	"math"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/sim"
	"github.com/gwillem/armsort/pkg/world"
)

// Extent of the scene in world units.
const (
	worldWidth  = 800
	worldHeight = 600
)

var boxColors = map[world.Color]string{
	world.Red:    "196",
	world.Blue:   "33",
	world.Green:  "46",
	world.Yellow: "226",
}

var (
	armStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	jointStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	stagingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func colorStyle(c world.Color) lipgloss.Style {
	code, ok := boxColors[c]
	if !ok {
		code = "250"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code))
}

// projection maps world coordinates onto a canvas of w by h cells.
type projection struct {
	w, h int
}

func (p projection) cell(pt r2.Point) canvas.Point {
	x := int(math.Floor(pt.X * float64(p.w) / worldWidth))
	y := int(math.Floor(pt.Y * float64(p.h) / worldHeight))
	return canvas.Point{X: clampInt(x, 0, p.w-1), Y: clampInt(y, 0, p.h-1)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// line returns the cells on the segment from a to b, both ends included.
func line(a, b canvas.Point) []canvas.Point {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	var pts []canvas.Point
	err := dx + dy
	for {
		pts = append(pts, a)
		if a == b {
			return pts
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			a.X += sx
		}
		if e2 <= dx {
			err += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// fillRect sets every cell covered by r.
func fillRect(c *canvas.Model, p projection, r r2.Rect, ch rune, st lipgloss.Style) {
	lo := p.cell(r.Lo())
	hi := p.cell(r.Hi())
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			c.SetRuneWithStyle(canvas.Point{X: x, Y: y}, ch, st)
		}
	}
}

// drawScene renders the staging area, zones, boxes and arm of s onto c.
func drawScene(c *canvas.Model, w, h int, s sim.Snapshot) {
	c.Clear()
	p := projection{w: w, h: h}

	fillRect(c, p, s.Staging, '·', stagingStyle)
	for _, z := range s.Zones {
		fillRect(c, p, z.Bounds, '░', colorStyle(z.Color))
	}

	for _, o := range s.Objects {
		if s.Arm.Held != nil && *s.Arm.Held == o.ID {
			continue
		}
		fillRect(c, p, o.Bounds(), '█', colorStyle(o.Color))
	}

	base, elbow, end := p.cell(s.Arm.Base), p.cell(s.Arm.Elbow), p.cell(s.Arm.End)
	for _, pt := range line(base, elbow) {
		c.SetRuneWithStyle(pt, '•', armStyle)
	}
	for _, pt := range line(elbow, end) {
		c.SetRuneWithStyle(pt, '•', armStyle)
	}

	// Held box rides on top of the arm.
	if s.Arm.Held != nil {
		for _, o := range s.Objects {
			if o.ID == *s.Arm.Held {
				fillRect(c, p, o.Bounds(), '█', colorStyle(o.Color))
			}
		}
	}

	c.SetRuneWithStyle(base, '◉', jointStyle)
	c.SetRuneWithStyle(elbow, 'o', jointStyle)
	gripper := '>'
	if !s.Arm.GripperOpen {
		gripper = '*'
	}
	c.SetRuneWithStyle(end, gripper, jointStyle)
}
