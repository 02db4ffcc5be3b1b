package sorter

import "github.com/gwillem/armsort/pkg/world"

// Phase names the variant of a State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseMovingToPickup
	PhasePicking
	PhaseMovingToZone
	PhasePlacing
	PhaseFaulted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMovingToPickup:
		return "moving_to_pickup"
	case PhasePicking:
		return "picking"
	case PhaseMovingToZone:
		return "moving_to_zone"
	case PhasePlacing:
		return "placing"
	case PhaseFaulted:
		return "faulted"
	}
	return "unknown"
}

// Task is the object being handled and the zone it goes to.
type Task struct {
	Object world.ObjectID
	Zone   world.Color
}

// State is the machine's current step. Only the non-idle variants carry a
// Task, so an idle machine cannot hold a stale target.
type State interface {
	Phase() Phase
}

type (
	Idle           struct{}
	MovingToPickup struct{ Task }
	Picking        struct{ Task }
	MovingToZone   struct{ Task }
	Placing        struct{ Task }
	// Faulted is entered under StallFault and left only by Reset.
	Faulted struct {
		Task
		From Phase
	}
)

func (Idle) Phase() Phase           { return PhaseIdle }
func (MovingToPickup) Phase() Phase { return PhaseMovingToPickup }
func (Picking) Phase() Phase        { return PhasePicking }
func (MovingToZone) Phase() Phase   { return PhaseMovingToZone }
func (Placing) Phase() Phase        { return PhasePlacing }
func (Faulted) Phase() Phase        { return PhaseFaulted }

// TaskOf returns the task carried by s, if any.
func TaskOf(s State) (Task, bool) {
	switch s := s.(type) {
	case MovingToPickup:
		return s.Task, true
	case Picking:
		return s.Task, true
	case MovingToZone:
		return s.Task, true
	case Placing:
		return s.Task, true
	case Faulted:
		return s.Task, true
	}
	return Task{}, false
}
