package robot

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/armsort/pkg/sorter"
	"github.com/gwillem/armsort/pkg/world"
)

//go:embed config.schema.json
var configSchema string

// Config holds the sorting cell configuration
type Config struct {
	Scene   world.Layout   `json:"scene" yaml:"scene"`
	Motion  sorter.Options `json:"motion" yaml:"motion"`
	Hz      int            `json:"hz" yaml:"hz"`
	Seed    uint64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	Journal string         `json:"journal,omitempty" yaml:"journal,omitempty"`
	Mirror  *ArmConfig     `json:"mirror,omitempty" yaml:"mirror,omitempty"`
}

// ArmConfig holds configuration for the mirrored follower arm
type ArmConfig struct {
	Port        string      `json:"port" yaml:"port"`
	Calibration Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Joints      Joints      `json:"joints" yaml:"joints"`
}

// IsCalibrated returns true if the arm has calibration data for every
// mirrored motor
func (a *ArmConfig) IsCalibrated() bool {
	for _, name := range MirrorMotors() {
		if _, ok := a.Calibration[name]; !ok {
			return false
		}
	}
	return true
}

// DefaultConfig returns the stock scene at 60 Hz without a mirror arm
func DefaultConfig() *Config {
	return &Config{
		Scene:  world.DefaultLayout(),
		Motion: sorter.DefaultOptions(),
		Hz:     60,
	}
}

// Validate checks the values the simulation cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Hz <= 0 {
		errs = append(errs, fmt.Errorf("hz must be positive (got %d)", c.Hz))
	}
	if err := c.Scene.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scene: %w", err))
	}
	if err := c.Motion.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("motion: %w", err))
	}
	if c.Mirror != nil && c.Mirror.Port == "" {
		errs = append(errs, errors.New("mirror: port is required"))
	}
	return errors.Join(errs...)
}

// LoadConfigFrom loads configuration from a specific file. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. Fields missing from
// the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	var doc any
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		// Round-trip through JSON so the schema sees JSON types.
		if doc, err = jsonDocument(doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func jsonDocument(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateSchema(doc any) error {
	schema, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	return schema.Validate(doc)
}
