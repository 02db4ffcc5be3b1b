// Package armsort simulates a two-link planar arm sorting colored boxes into
// matching zones.
//
// A fixed-rate controller steps a five-state pick-and-place machine: pick the
// next unsorted box, move over it, grip, carry it to the zone of its color and
// release it into the next free slot. Joint motion is rate-limited per tick and
// targets come from analytic inverse kinematics. The simulated joints can drive
// a calibrated SO-101 arm, and runs can be recorded to a SQLite journal.
//
// # Installation
//
//	go install github.com/gwillem/armsort/cmd/armsort@latest
//
// # Usage
//
// Watch the cell sort a batch in the terminal:
//
//	armsort run
//
// Sort a batch headless and print a summary:
//
//	armsort simulate --seed 42 --db runs.db
//
// Stream the scene to local WebSocket observers:
//
//	armsort serve --addr 127.0.0.1:8080
//
// Optionally detect and calibrate a follower arm to mirror the simulation:
//
//	armsort setup
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armsort: CLI with run, simulate, serve, setup and history commands
//   - pkg/kinematics: Forward and inverse kinematics of the two-link arm
//   - pkg/motion: Bounded-step joint interpolation
//   - pkg/world: Boxes, zones, arm state and the scene layout
//   - pkg/sorter: Pick-and-place state machine
//   - pkg/sim: Fixed-rate controller and state fan-out
//   - pkg/journal: SQLite run journal with compressed export
//   - pkg/observe: HTTP and WebSocket observer server
//   - pkg/robot: Mirror arm control, calibration, and configuration
package armsort
