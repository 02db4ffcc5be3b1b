package observe

import (
	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/sim"
)

// Message types and control actions.
const (
	TypeScene   = "SCENE"
	TypeControl = "CONTROL"
	TypeError   = "ERROR"

	ActionRun   = "run"
	ActionPause = "pause"
	ActionReset = "reset"
)

// Point is a world position in pixels, y down.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ArmMsg carries the arm pose. Angles are in radians.
type ArmMsg struct {
	Base        Point   `json:"base"`
	Elbow       Point   `json:"elbow"`
	End         Point   `json:"end"`
	Shoulder    float64 `json:"shoulder"`
	ElbowAngle  float64 `json:"elbow_angle"`
	GripperOpen bool    `json:"gripper_open"`
	Held        *int    `json:"held,omitempty"`
}

// ObjectMsg is one box of the current batch.
type ObjectMsg struct {
	Index  int    `json:"index"`
	Color  string `json:"color"`
	Rect   Rect   `json:"rect"`
	Sorted bool   `json:"sorted"`
}

// ZoneMsg is the destination zone of one color.
type ZoneMsg struct {
	Color string `json:"color"`
	Rect  Rect   `json:"rect"`
}

// SceneMsg is pushed to observers after every tick.
type SceneMsg struct {
	Type       string         `json:"type"`
	Tick       uint64         `json:"tick"`
	Generation uint32         `json:"generation"`
	Phase      string         `json:"phase"`
	Running    bool           `json:"running"`
	Task       *int           `json:"task,omitempty"`
	Arm        ArmMsg         `json:"arm"`
	Objects    []ObjectMsg    `json:"objects"`
	Zones      []ZoneMsg      `json:"zones"`
	Staging    Rect           `json:"staging"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
}

// ControlMsg is sent by observers: {"type":"CONTROL","action":"run"}.
type ControlMsg struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// ErrorMsg answers a message the server could not act on.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewSceneMsg converts a snapshot to its wire form.
func NewSceneMsg(s sim.Snapshot) SceneMsg {
	msg := SceneMsg{
		Type:       TypeScene,
		Tick:       s.Tick,
		Generation: s.Generation,
		Phase:      s.Phase.String(),
		Running:    s.Running,
		Arm: ArmMsg{
			Base:        point(s.Arm.Base),
			Elbow:       point(s.Arm.Elbow),
			End:         point(s.Arm.End),
			Shoulder:    s.Arm.Angles.Shoulder,
			ElbowAngle:  s.Arm.Angles.Elbow,
			GripperOpen: s.Arm.GripperOpen,
		},
		Objects: make([]ObjectMsg, len(s.Objects)),
		Zones:   make([]ZoneMsg, len(s.Zones)),
		Staging: rect(s.Staging),
		Counts:  make(map[string]int, len(s.Counts)),
		Total:   s.Counts.Total(),
	}
	if s.Arm.Held != nil {
		idx := s.Arm.Held.Index
		msg.Arm.Held = &idx
	}
	if s.Task != nil {
		idx := s.Task.Object.Index
		msg.Task = &idx
	}
	for i, o := range s.Objects {
		msg.Objects[i] = ObjectMsg{Index: o.ID.Index, Color: string(o.Color), Rect: rect(o.Bounds()), Sorted: o.Sorted}
	}
	for i, z := range s.Zones {
		msg.Zones[i] = ZoneMsg{Color: string(z.Color), Rect: rect(z.Bounds)}
	}
	for c, n := range s.Counts {
		msg.Counts[string(c)] = n
	}
	return msg
}

func point(p r2.Point) Point { return Point{X: p.X, Y: p.Y} }

func rect(r r2.Rect) Rect {
	return Rect{X: r.X.Lo, Y: r.Y.Lo, W: r.X.Length(), H: r.Y.Length()}
}
