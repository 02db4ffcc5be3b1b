package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/armsort/pkg/robot"
)

const (
	busBaud    = 1_000_000
	busTimeout = 100 * time.Millisecond
	scanWindow = 2 * time.Second

	nudgeTicks = 30
	nudgeLeg   = 500 * time.Millisecond
)

var errNoArm = errors.New("no arm selected")

type SetupCommand struct {
	Port string `long:"port" description:"Serial port of the arm (skips scanning)"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("armsort Mirror Arm Setup"))
	fmt.Println(dimStyle.Render(strings.Repeat("━", 24)))
	fmt.Println()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	port := c.Port
	if port == "" {
		if port, err = pickArm(); err != nil {
			return err
		}
	}

	arm := &robot.ArmConfig{Port: port, Joints: robot.DefaultJoints()}
	if cfg.Mirror != nil && cfg.Mirror.Port == port {
		// Keep hand-tuned joint mapping from an earlier setup.
		arm.Joints = cfg.Mirror.Joints
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Mirror Arm on " + port + " ━━━"))
	fmt.Println()
	if arm.Calibration, err = calibrateArm(port); err != nil {
		return err
	}

	cfg.Mirror = arm
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Mirror arm calibrated."))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println("Start sorting with: " + headerStyle.Render("armsort run"))
	return nil
}

// servoID returns the bus ID of a motor on an SO-101 arm.
func servoID(name robot.MotorName) int {
	return slices.Index(robot.AllMotors(), name) + 1
}

type foundArm struct {
	port   string
	bus    *feetech.Bus
	servos []feetech.FoundServo
}

// pickArm scans the serial ports and returns the port of the arm to mirror.
// With several arms connected, each one nudges its shoulder and the user
// confirms which one it is.
func pickArm() (string, error) {
	fmt.Println("Scanning serial ports for SO-101 arms...")
	arms := probePorts()
	defer func() {
		for _, a := range arms {
			a.bus.Close()
		}
	}()

	switch len(arms) {
	case 0:
		return "", fmt.Errorf("no SO-101 arm found, check that it is connected and powered on")
	case 1:
		fmt.Printf("Using the arm on %s\n", arms[0].port)
		return arms[0].port, nil
	}

	fmt.Printf("Found %d arms. Each one will nudge its shoulder in turn.\n", len(arms))
	for _, a := range arms {
		use, err := confirmByNudge(a)
		if err != nil {
			return "", err
		}
		if use {
			return a.port, nil
		}
	}
	return "", errNoArm
}

func probePorts() []foundArm {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []foundArm
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		bus, servos, err := connectToArm(port)
		if err != nil {
			continue
		}
		fmt.Printf("  %s: SO-101 arm\n", port)
		found = append(found, foundArm{port: port, bus: bus, servos: servos})
	}
	return found
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: busBaud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  busTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanWindow)
	defer cancel()

	n := len(robot.AllMotors())
	servos, err := bus.Scan(ctx, 1, n)
	if err == nil && !isSOArm(servos) {
		err = fmt.Errorf("%s: expected servos with IDs 1-%d", port, n)
	}
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, servos, nil
}

// isSOArm reports whether servos carry exactly the IDs of an SO-101 arm.
func isSOArm(servos []feetech.FoundServo) bool {
	motors := robot.AllMotors()
	if len(servos) != len(motors) {
		return false
	}
	for _, name := range motors {
		id := servoID(name)
		if !slices.ContainsFunc(servos, func(s feetech.FoundServo) bool { return s.ID == id }) {
			return false
		}
	}
	return true
}

func confirmByNudge(a foundArm) (bool, error) {
	id := servoID(robot.ShoulderLift)
	i := slices.IndexFunc(a.servos, func(s feetech.FoundServo) bool { return s.ID == id })
	if i < 0 {
		return false, nil
	}

	fmt.Printf("\n  Nudging the shoulder of the arm on %s...\n", a.port)
	servo := feetech.NewServo(a.bus, id, a.servos[i].Model)
	if err := nudge(context.Background(), servo, nudgeTicks, nudgeLeg); err != nil {
		fmt.Printf("  %s: %v\n", a.port, err)
		return false, nil
	}

	var use bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Mirror the simulation on %s?", a.port)).
		Description("The arm whose shoulder just moved").
		Affirmative("Use this arm").
		Negative("Skip").
		Value(&use).
		Run()
	return use, err
}

// nudge swings a servo by amount to either side of where it stands and back,
// spending leg on each move.
func nudge(ctx context.Context, s *feetech.Servo, amount int, leg time.Duration) error {
	home, err := s.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	if err := s.Enable(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	defer s.Disable(ctx)

	for _, offset := range []int{amount, -amount, 0} {
		s.SetPositionWithTime(ctx, home+offset, int(leg.Milliseconds()))
		time.Sleep(leg + 100*time.Millisecond)
	}
	return nil
}

// calibrateArm frees every servo and records the range the user sweeps the
// mirror motors through.
func calibrateArm(port string) (robot.Calibration, error) {
	bus, servos, err := connectToArm(port)
	if err != nil {
		return nil, fmt.Errorf("connect to arm: %w", err)
	}
	defer bus.Close()

	ctx := context.Background()
	motors := robot.AllMotors()
	mirrored := make(map[robot.MotorName]positioner)
	for _, s := range servos {
		servo := feetech.NewServo(bus, s.ID, s.Model)
		servo.Disable(ctx)
		if name := motors[s.ID-1]; slices.Contains(robot.MirrorMotors(), name) {
			mirrored[name] = servo
		}
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Sweep the shoulder, elbow and gripper through their full range.")
	fmt.Println()

	final, err := tea.NewProgram(newCalibrationModel(ctx, robot.MirrorMotors(), mirrored)).Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	return final.(calibrationModel).calibration(), nil
}
