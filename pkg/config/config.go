// Package config loads device configuration from a YAML file, applying
// defaults for anything left unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/eyes"
)

// Default values for Config.
const (
	DefaultLinkKind  = "memory"
	DefaultStatePath = "bloco-state.yaml"
	DefaultSlots     = 2
	DefaultEyeStyle  = "pupil"
)

// Config represents a bloco.yaml device file.
type Config struct {
	// Role selects board or robot behavior.
	Role bloco.Role `yaml:"role"`
	// DeviceName is the identity used to derive the link address.
	DeviceName string `yaml:"device_name"`
	// LinkKind picks the registered link implementation.
	LinkKind string `yaml:"link_kind"`
	// StatePath is where the pairing identity is persisted.
	StatePath string `yaml:"state_path"`
	// Slots is the number of token positions on a board.
	Slots int `yaml:"slots"`
	// EyeStyle is "pupil" or "solid".
	EyeStyle string `yaml:"eye_style"`
}

// ValidationError reports a bad configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		Role:       bloco.RoleRobot,
		DeviceName: "bloco",
		LinkKind:   DefaultLinkKind,
		StatePath:  DefaultStatePath,
		Slots:      DefaultSlots,
		EyeStyle:   DefaultEyeStyle,
	}
}

// Load reads and parses the config file at path. A missing file yields
// the defaults; set fields override them.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Role != bloco.RoleBoard && cfg.Role != bloco.RoleRobot {
		return ValidationError{Field: "role", Message: `must be "board" or "robo"`}
	}
	if cfg.DeviceName == "" {
		return ValidationError{Field: "device_name", Message: "must not be empty"}
	}
	if cfg.LinkKind == "" {
		return ValidationError{Field: "link_kind", Message: "must not be empty"}
	}
	if cfg.Slots <= 0 {
		return ValidationError{Field: "slots", Message: "must be positive"}
	}
	if cfg.EyeStyle != "pupil" && cfg.EyeStyle != "solid" {
		return ValidationError{Field: "eye_style", Message: `must be "pupil" or "solid"`}
	}
	return nil
}

// Style maps the configured eye style onto the animator's enum.
func (c Config) Style() eyes.Style {
	if c.EyeStyle == "solid" {
		return eyes.StyleSolid
	}
	return eyes.StylePupil
}
