package robot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armsort/pkg/sorter"
	"github.com/gwillem/armsort/pkg/world"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"armsort.json", "armsort.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Hz = 30
			cfg.Seed = 99
			cfg.Journal = "runs.db"
			cfg.Motion.Stall = sorter.StallFault
			cfg.Scene.Fixed = []world.ObjectSpec{{Color: world.Blue, X: 610, Y: 410}}
			cfg.Mirror = &ArmConfig{
				Port: "/dev/ttyACM0",
				Calibration: Calibration{
					ShoulderLift: MotorCalibration{ID: 2, RangeMin: 800, RangeMax: 3200},
					ElbowFlex:    MotorCalibration{ID: 3, RangeMin: 900, RangeMax: 3100},
					Gripper:      MotorCalibration{ID: 6, RangeMin: 1900, RangeMax: 3400},
				},
				Joints: DefaultJoints(),
			}

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveTo(path))

			got, err := LoadConfigFrom(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
			assert.True(t, got.Mirror.IsCalibrated())
		})
	}
}

func TestLoadConfigFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armsort.yml")
	require.NoError(t, os.WriteFile(path, []byte("hz: 120\nmotion:\n  max_step: 0.1\n"), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Hz)
	assert.Equal(t, 0.1, cfg.Motion.MaxStep)
	assert.Equal(t, sorter.DefaultHoverHeight, int(cfg.Motion.HoverHeight))
	assert.Equal(t, world.DefaultLayout(), cfg.Scene)
}

func TestLoadConfigFrom_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", `{"hz": 60, "speed": 3}`, "speed"},
		{"zero hz", `{"hz": 0}`, "hz"},
		{"bad stall policy", `{"motion": {"stall": "explode"}}`, "stall"},
		{"missing zone", `{"scene": {"palette": ["red", "purple"]}}`, "no zone for palette color purple"},
		{"mirror without port", `{"mirror": {"joints": {}}}`, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "armsort.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := LoadConfigFrom(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFrom_Missing(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestArmConfig_IsCalibrated(t *testing.T) {
	a := ArmConfig{Port: "/dev/ttyACM0"}
	assert.False(t, a.IsCalibrated())

	a.Calibration = Calibration{
		ShoulderLift: MotorCalibration{ID: 2},
		ElbowFlex:    MotorCalibration{ID: 3},
	}
	assert.False(t, a.IsCalibrated(), "gripper missing")

	a.Calibration[Gripper] = MotorCalibration{ID: 6}
	assert.True(t, a.IsCalibrated())
}
