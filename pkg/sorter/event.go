package sorter

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/gwillem/armsort/pkg/world"
)

// EventKind classifies machine events.
type EventKind int

const (
	// EventTaskStarted: an object was selected and the arm heads for it.
	EventTaskStarted EventKind = iota + 1
	// EventPicked: the gripper closed on the object.
	EventPicked
	// EventPlaced: the object was released into its zone and counted.
	EventPlaced
	// EventStalled: the current target is out of reach. Sent once per stall.
	EventStalled
	// EventFaulted: the stall outlasted the fault budget.
	EventFaulted
	// EventDrained: no unsorted objects are left.
	EventDrained
)

func (k EventKind) String() string {
	switch k {
	case EventTaskStarted:
		return "task_started"
	case EventPicked:
		return "picked"
	case EventPlaced:
		return "placed"
	case EventStalled:
		return "stalled"
	case EventFaulted:
		return "faulted"
	case EventDrained:
		return "drained"
	}
	return "unknown"
}

// Event is something notable that happened during a tick.
type Event struct {
	Kind   EventKind
	Tick   uint64
	Phase  Phase
	Object world.ObjectID
	Color  world.Color
	Slot   r2.Point // EventPlaced only
}

func (e Event) String() string {
	switch e.Kind {
	case EventPlaced:
		return fmt.Sprintf("tick %d: placed %s box #%d at (%.0f, %.0f)", e.Tick, e.Color, e.Object.Index, e.Slot.X, e.Slot.Y)
	case EventDrained:
		return fmt.Sprintf("tick %d: all boxes sorted", e.Tick)
	case EventStalled, EventFaulted:
		return fmt.Sprintf("tick %d: %s in %s (box #%d out of reach)", e.Tick, e.Kind, e.Phase, e.Object.Index)
	}
	return fmt.Sprintf("tick %d: %s %s box #%d", e.Tick, e.Kind, e.Color, e.Object.Index)
}
