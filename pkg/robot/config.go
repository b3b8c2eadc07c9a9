package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/goocto/balancebot/pkg/board"
	"github.com/goocto/balancebot/pkg/drive"
	"github.com/goocto/balancebot/pkg/motor"
)

const DefaultConfigFile = "balancebot.json"

// Config holds the robot configuration
type Config struct {
	Board        board.Config `json:"board" yaml:"board"`
	Pins         motor.Pins   `json:"pins" yaml:"pins"`
	MaxMagnitude int          `json:"max_magnitude" yaml:"max_magnitude" env:"BALANCEBOT_MAX_MAGNITUDE"`
	InvertLeft   bool         `json:"invert_left,omitempty" yaml:"invert_left,omitempty" env:"BALANCEBOT_INVERT_LEFT"`
	InvertRight  bool         `json:"invert_right,omitempty" yaml:"invert_right,omitempty" env:"BALANCEBOT_INVERT_RIGHT"`
	Drive        drive.Config `json:"drive" yaml:"drive"`
}

// DefaultConfig returns a configuration for an Arduino running Firmata
// with a DRV8835-style PH/EN driver.
func DefaultConfig() *Config {
	return &Config{
		Board: board.Config{Kind: board.Firmata},
		Pins: motor.Pins{
			ModeSelect:  4,
			LeftEnable:  9,
			LeftPhase:   7,
			RightEnable: 10,
			RightPhase:  8,
		},
		MaxMagnitude: motor.DutyMax,
		Drive:        drive.DefaultConfig(),
	}
}

// Validate checks the configuration before any pin is touched.
func (c *Config) Validate() error {
	if err := c.Pins.Validate(); err != nil {
		return err
	}
	if c.MaxMagnitude < 1 || c.MaxMagnitude > motor.DutyMax {
		return fmt.Errorf("%w: %d", motor.ErrMaxMagnitude, c.MaxMagnitude)
	}
	for _, k := range board.Kinds() {
		if c.Board.Kind == k {
			return board.CheckPins(k, c.Pins)
		}
	}
	return fmt.Errorf("%w: %q", board.ErrUnknownBoard, c.Board.Kind)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file, then applies
// BALANCEBOT_* environment overrides.
func LoadConfigFrom(path string) (*Config, error) {
	cfg, err := ReadConfigFrom(path)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

// ReadConfigFrom reads a config file without environment overrides, so
// the result is safe to edit and save back. Files ending in .yaml or .yml
// are read as YAML, anything else as JSON.
func ReadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
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

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
