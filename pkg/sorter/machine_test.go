package sorter

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armsort/pkg/world"
)

const maxTicks = 20_000

func singleRedLayout() world.Layout {
	l := world.DefaultLayout()
	l.Palette = []world.Color{world.Red}
	l.Zones = []world.ZoneSpec{{Color: world.Red, Rect: world.Rect{X: 50, Y: 450, W: 80, H: 80}}}
	l.Fixed = []world.ObjectSpec{{Color: world.Red, X: 610, Y: 410}}
	return l
}

func newMachine(t *testing.T, l world.Layout, opts Options) *Machine {
	t.Helper()
	w, err := world.New(l, world.Seeded(1))
	require.NoError(t, err)
	m, err := New(w, opts)
	require.NoError(t, err)
	return m
}

// runUntilDrained ticks m until it reports that every object is sorted,
// checking the gripper invariant after every tick.
func runUntilDrained(t *testing.T, m *Machine) []Event {
	t.Helper()
	var all []Event
	for i := 0; i < maxTicks; i++ {
		events := m.Tick(true)
		all = append(all, events...)
		checkGripperInvariant(t, m)
		for _, ev := range events {
			if ev.Kind == EventDrained {
				return all
			}
		}
	}
	t.Fatalf("not drained after %d ticks (state %s)", maxTicks, m.State().Phase())
	return nil
}

func checkGripperInvariant(t *testing.T, m *Machine) {
	t.Helper()
	snap := m.Snapshot()
	if snap.Arm.Held == nil {
		return
	}
	switch m.State().(type) {
	case Picking, MovingToZone:
		require.False(t, snap.Arm.GripperOpen, "holding with open gripper in %s", m.State().Phase())
	case Placing:
	default:
		t.Fatalf("holding an object in %s", m.State().Phase())
	}
}

func TestMachine_SingleRedObjectScenario(t *testing.T) {
	m := newMachine(t, singleRedLayout(), DefaultOptions())

	runUntilDrained(t, m)

	assert.IsType(t, Idle{}, m.State())
	_, hasTask := TaskOf(m.State())
	assert.False(t, hasTask)

	snap := m.Snapshot()
	require.Len(t, snap.Objects, 1)
	obj := snap.Objects[0]
	zone := snap.Zones[0]
	assert.True(t, obj.Sorted)
	assert.True(t, zone.Bounds.ContainsPoint(obj.Pos), "object at %v not in zone %v", obj.Pos, zone.Bounds)
	assert.True(t, zone.Bounds.Contains(obj.Bounds()))
	assert.Equal(t, 1, snap.Counts[world.Red])
	assert.Nil(t, snap.Arm.Held)
	assert.True(t, snap.Arm.GripperOpen)
}

func TestMachine_PhaseSequence(t *testing.T) {
	m := newMachine(t, singleRedLayout(), DefaultOptions())

	var phases []Phase
	for i := 0; i < maxTicks; i++ {
		m.Tick(true)
		p := m.State().Phase()
		if len(phases) == 0 || phases[len(phases)-1] != p {
			phases = append(phases, p)
		}
		if p == PhaseIdle && len(phases) > 1 {
			break
		}
	}

	assert.Equal(t, []Phase{
		PhaseMovingToPickup,
		PhasePicking,
		PhaseMovingToZone,
		PhasePlacing,
		PhaseIdle,
	}, phases)
}

func TestMachine_PickingAndPlacingLastOneTick(t *testing.T) {
	m := newMachine(t, singleRedLayout(), DefaultOptions())

	counts := map[Phase]int{}
	for i := 0; i < maxTicks; i++ {
		m.Tick(true)
		counts[m.State().Phase()]++
		if m.State().Phase() == PhaseIdle && counts[PhasePlacing] > 0 {
			break
		}
	}
	assert.Equal(t, 1, counts[PhasePicking])
	assert.Equal(t, 1, counts[PhasePlacing])
}

func TestMachine_PausedTickChangesNothing(t *testing.T) {
	m := newMachine(t, world.DefaultLayout(), DefaultOptions())

	for i := 0; i < 10; i++ {
		m.Tick(true)
	}
	require.Equal(t, PhaseMovingToPickup, m.State().Phase())

	state, ticks, snap := m.State(), m.Ticks(), m.Snapshot()
	for i := 0; i < 10; i++ {
		assert.Nil(t, m.Tick(false))
	}
	assert.Equal(t, state, m.State())
	assert.Equal(t, ticks, m.Ticks())
	assert.Equal(t, snap, m.Snapshot())
}

func TestMachine_FullBatchCounterIntegrity(t *testing.T) {
	m := newMachine(t, world.DefaultLayout(), DefaultOptions())

	events := runUntilDrained(t, m)

	picked := map[world.ObjectID]int{}
	placed := 0
	for _, ev := range events {
		switch ev.Kind {
		case EventPicked:
			picked[ev.Object]++
		case EventPlaced:
			placed++
		}
	}

	snap := m.Snapshot()
	assert.Len(t, picked, len(snap.Objects))
	for id, n := range picked {
		assert.Equal(t, 1, n, "object %d picked %d times", id.Index, n)
	}
	assert.Equal(t, len(snap.Objects), placed)
	assert.Equal(t, snap.SortedObjects(), snap.Counts.Total())
	assert.Equal(t, 12, snap.Counts.Total())

	perColor := map[world.Color]int{}
	for _, o := range snap.Objects {
		perColor[o.Color]++
	}
	for _, c := range world.DefaultPalette() {
		assert.Equal(t, perColor[c], snap.Counts[c], "count for %s", c)
	}
}

func TestMachine_FirstObjectsLandInOwnZone(t *testing.T) {
	m := newMachine(t, world.DefaultLayout(), DefaultOptions())
	runUntilDrained(t, m)

	snap := m.Snapshot()
	zones := map[world.Color]world.Zone{}
	for _, z := range snap.Zones {
		zones[z.Color] = z
	}

	// Within capacity, every box sits fully inside its zone.
	seen := map[world.Color]int{}
	for _, o := range snap.Objects {
		seen[o.Color]++
		if seen[o.Color] > 4 {
			continue
		}
		assert.True(t, zones[o.Color].Bounds.Contains(o.Bounds()), "box %d (%s) at %v", o.ID.Index, o.Color, o.Pos)
	}
}

func TestMachine_OverflowBoxesDoNotStack(t *testing.T) {
	l := singleRedLayout()
	l.Fixed = nil
	l.Objects = 7
	m := newMachine(t, l, DefaultOptions())
	events := runUntilDrained(t, m)

	slots := map[r2.Point]int{}
	for _, ev := range events {
		if ev.Kind != EventPlaced {
			continue
		}
		if prev, dup := slots[ev.Slot]; dup {
			t.Errorf("object %d placed on object %d at %v", ev.Object.Index, prev, ev.Slot)
		}
		slots[ev.Slot] = ev.Object.Index
	}
	assert.Len(t, slots, 7)

	positions := map[r2.Point]bool{}
	for _, o := range m.Snapshot().Objects {
		positions[o.Pos] = true
	}
	assert.Len(t, positions, 7)
}

func TestMachine_DrainedReportedOnce(t *testing.T) {
	m := newMachine(t, singleRedLayout(), DefaultOptions())
	runUntilDrained(t, m)

	for i := 0; i < 50; i++ {
		assert.Empty(t, m.Tick(true))
		assert.IsType(t, Idle{}, m.State())
	}
}

func TestMachine_ResetMidTransport(t *testing.T) {
	m := newMachine(t, world.DefaultLayout(), DefaultOptions())

	for i := 0; i < maxTicks && m.State().Phase() != PhaseMovingToZone; i++ {
		m.Tick(true)
	}
	require.Equal(t, PhaseMovingToZone, m.State().Phase())
	before := m.Snapshot().Generation

	counts := m.Reset()

	assert.Equal(t, 0, counts.Total())
	assert.IsType(t, Idle{}, m.State())
	assert.Equal(t, uint64(0), m.Ticks())

	snap := m.Snapshot()
	assert.Equal(t, before+1, snap.Generation)
	assert.Nil(t, snap.Arm.Held)
	assert.True(t, snap.Arm.GripperOpen)
	assert.Equal(t, world.DefaultLayout().Home(), snap.Arm.Angles)
	assert.Zero(t, snap.SortedObjects())

	// The fresh batch is sorted from scratch.
	runUntilDrained(t, m)
	assert.Equal(t, 12, m.Snapshot().Counts.Total())
}

func unreachableLayout() world.Layout {
	l := singleRedLayout()
	l.Fixed = []world.ObjectSpec{{Color: world.Red, X: 5, Y: 5}}
	return l
}

func TestMachine_UnreachableStallsSilently(t *testing.T) {
	m := newMachine(t, unreachableLayout(), DefaultOptions())

	m.Tick(true)
	require.Equal(t, PhaseMovingToPickup, m.State().Phase())
	angles := m.Snapshot().Arm.Angles

	var stalls int
	for i := 0; i < 500; i++ {
		for _, ev := range m.Tick(true) {
			require.Equal(t, EventStalled, ev.Kind)
			stalls++
		}
	}
	assert.Equal(t, 1, stalls)
	assert.Equal(t, PhaseMovingToPickup, m.State().Phase())
	assert.Equal(t, angles, m.Snapshot().Arm.Angles)
	assert.Zero(t, m.Snapshot().SortedObjects())
}

func TestMachine_UnreachableFaultPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.Stall = StallFault
	opts.FaultAfter = 3
	m := newMachine(t, unreachableLayout(), opts)

	m.Tick(true)
	var kinds []EventKind
	for i := 0; i < 3; i++ {
		for _, ev := range m.Tick(true) {
			kinds = append(kinds, ev.Kind)
		}
	}
	assert.Equal(t, []EventKind{EventStalled, EventFaulted}, kinds)

	f, ok := m.State().(Faulted)
	require.True(t, ok)
	assert.Equal(t, PhaseMovingToPickup, f.From)

	assert.Empty(t, m.Tick(true))
	assert.IsType(t, Faulted{}, m.State())

	m.Reset()
	assert.IsType(t, Idle{}, m.State())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"zero step", func(o *Options) { o.MaxStep = 0 }, true},
		{"fault without budget", func(o *Options) { o.Stall = StallFault; o.FaultAfter = 0 }, true},
		{"fault with budget", func(o *Options) { o.Stall = StallFault; o.FaultAfter = 10 }, false},
		{"unknown policy", func(o *Options) { o.Stall = "explode" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			if tt.wantErr {
				assert.Error(t, o.Validate())
			} else {
				assert.NoError(t, o.Validate())
			}
		})
	}
}
