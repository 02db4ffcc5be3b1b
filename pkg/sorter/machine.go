// Package sorter sequences the pick-and-place cycle of the sorting arm.
//
// A Machine is ticked once per simulation step. Each tick reads the world,
// solves inverse kinematics for the current target, advances the joints by at
// most one step and applies any resulting transition:
//
//	Idle -> MovingToPickup -> Picking -> MovingToZone -> Placing -> Idle
//
// Ticks must be serialized by the caller.
package sorter

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/kinematics"
	"github.com/gwillem/armsort/pkg/motion"
	"github.com/gwillem/armsort/pkg/world"
)

// StallPolicy decides what happens while a target stays out of reach.
type StallPolicy string

const (
	// StallWait keeps retrying forever.
	StallWait StallPolicy = "wait"
	// StallFault moves to Faulted after Options.FaultAfter unreachable ticks.
	StallFault StallPolicy = "fault"
)

// DefaultHoverHeight is how far above a zone's center an object is released.
const DefaultHoverHeight = 40

// Options tune the machine.
type Options struct {
	MaxStep     float64     `json:"max_step" yaml:"max_step"`
	HoverHeight float64     `json:"hover_height" yaml:"hover_height"`
	Stall       StallPolicy `json:"stall" yaml:"stall"`
	FaultAfter  int         `json:"fault_after,omitempty" yaml:"fault_after,omitempty"`
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MaxStep:     motion.DefaultMaxStep,
		HoverHeight: DefaultHoverHeight,
		Stall:       StallWait,
		FaultAfter:  120,
	}
}

// Validate checks the options for values the machine cannot run with.
func (o Options) Validate() error {
	if o.MaxStep <= 0 {
		return fmt.Errorf("max step must be positive (got %g)", o.MaxStep)
	}
	switch o.Stall {
	case StallWait, "":
	case StallFault:
		if o.FaultAfter < 1 {
			return fmt.Errorf("fault_after must be at least 1 (got %d)", o.FaultAfter)
		}
	default:
		return fmt.Errorf("unknown stall policy %q", o.Stall)
	}
	return nil
}

// Machine drives one world through the sorting cycle.
type Machine struct {
	w    *world.World
	opts Options

	state   State
	ticks   uint64
	stalled int
	drained bool
}

// New returns an idle machine for w.
func New(w *world.World, opts Options) (*Machine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Machine{w: w, opts: opts, state: Idle{}}, nil
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Ticks returns the number of running ticks since start or the last reset.
func (m *Machine) Ticks() uint64 { return m.ticks }

// Options returns the machine's tuning.
func (m *Machine) Options() Options { return m.opts }

// Snapshot returns a read-only copy of the world.
func (m *Machine) Snapshot() world.Snapshot { return m.w.Snapshot() }

// Tick advances the machine by one step. It does nothing while running is
// false.
func (m *Machine) Tick(running bool) []Event {
	if !running {
		return nil
	}
	m.ticks++

	switch s := m.state.(type) {
	case Idle:
		return m.idle()
	case MovingToPickup:
		return m.movingToPickup(s)
	case Picking:
		return m.picking(s)
	case MovingToZone:
		return m.movingToZone(s)
	case Placing:
		return m.placing(s)
	}
	return nil
}

// Reset starts over with a fresh batch and returns the zeroed counts.
func (m *Machine) Reset() world.SortedCounts {
	m.w.Reset()
	m.state = Idle{}
	m.ticks = 0
	m.stalled = 0
	m.drained = false
	return m.w.Counts()
}

func (m *Machine) idle() []Event {
	id, ok := m.w.NextUnsorted()
	if !ok {
		if m.drained {
			return nil
		}
		m.drained = true
		return []Event{m.event(EventDrained, Task{})}
	}

	obj, _ := m.w.Object(id)
	// Every palette color has a zone; the layout is validated on load.
	zone, _ := m.w.ZoneFor(obj.Color)

	task := Task{Object: id, Zone: zone.Color}
	m.w.OpenGripper()
	m.state = MovingToPickup{task}
	m.drained = false
	return []Event{m.event(EventTaskStarted, task)}
}

func (m *Machine) movingToPickup(s MovingToPickup) []Event {
	obj, ok := m.w.Object(s.Object)
	if !ok {
		m.state = Idle{}
		return nil
	}

	reached, err := m.moveTo(obj.Center())
	if err != nil {
		return m.stall(s.Task)
	}
	if !reached {
		return nil
	}

	m.w.CloseGripper()
	m.w.Attach(s.Object)
	m.w.MarkSorted(s.Object)
	m.state = Picking{s.Task}
	return []Event{m.event(EventPicked, s.Task)}
}

func (m *Machine) picking(s Picking) []Event {
	if !m.w.Arm().GripperOpen {
		m.state = MovingToZone{s.Task}
	}
	return nil
}

func (m *Machine) movingToZone(s MovingToZone) []Event {
	m.w.FollowEffector()

	zone, _ := m.w.ZoneFor(s.Zone)
	reached, err := m.moveTo(world.ApproachPoint(zone.Bounds, m.opts.HoverHeight))
	if err != nil {
		return m.stall(s.Task)
	}
	if !reached {
		return nil
	}

	m.w.OpenGripper()
	m.state = Placing{s.Task}
	return nil
}

func (m *Machine) placing(s Placing) []Event {
	m.state = Idle{}

	id, ok := m.w.Held()
	if !ok {
		return nil
	}
	obj, _ := m.w.Object(id)
	slot, _ := m.w.PlaceInZone(id, s.Zone)
	m.w.RecordSorted(obj.Color)
	m.w.Detach()

	ev := m.event(EventPlaced, s.Task)
	ev.Slot = slot
	return []Event{ev}
}

// moveTo steps the arm toward target and reports whether it was already
// there. The arm does not move if target is out of reach.
func (m *Machine) moveTo(target r2.Point) (bool, error) {
	arm := m.w.Arm()
	angles, err := kinematics.Inverse(target, arm.Geometry)
	if err != nil {
		return false, err
	}
	m.stalled = 0

	next, reached := motion.Step(arm.Angles, angles, m.opts.MaxStep)
	m.w.SetAngles(next)
	return reached, nil
}

func (m *Machine) stall(task Task) []Event {
	m.stalled++

	var events []Event
	if m.stalled == 1 {
		events = append(events, m.event(EventStalled, task))
	}
	if m.opts.Stall == StallFault && m.stalled >= m.opts.FaultAfter {
		events = append(events, m.event(EventFaulted, task))
		m.state = Faulted{Task: task, From: m.state.Phase()}
	}
	return events
}

func (m *Machine) event(kind EventKind, task Task) Event {
	return Event{
		Kind:   kind,
		Tick:   m.ticks,
		Phase:  m.state.Phase(),
		Object: task.Object,
		Color:  task.Zone,
	}
}
