// Package config loads al1905d's YAML configuration file, grounded on the
// teacher's internal/converter YAML loader: a plain struct with yaml
// struct tags, unmarshaled with gopkg.in/yaml.v3 and then validated field
// by field rather than relying on schema validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// Config holds every option the daemon recognizes (spec §9): the four
// protocol-semantic options plus two ambient-only fields that carry no
// protocol meaning, mirroring how the teacher's YAML config carries
// ambient fields (include_path, capture_playbacks) beside the
// protocol-semantic device list.
type Config struct {
	AlMacAddress           string `yaml:"al_mac_address"`
	RegistrarInterfaceName string `yaml:"registrar_interface_name,omitempty"`
	MapWholeNetwork        bool   `yaml:"map_whole_network,omitempty"`
	Verbosity              int    `yaml:"verbosity,omitempty"`

	// Ambient, no protocol semantics.
	StoragePath             string `yaml:"storage_path,omitempty"`
	ManagementListenAddress string `yaml:"management_listen_address,omitempty"`
}

// Load reads and validates a YAML configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every recognized option holds a legal value. Unknown
// YAML keys are accepted and ignored by yaml.Unmarshal, consistent with the
// rule that only these options affect semantics.
func (c *Config) Validate() error {
	if c.AlMacAddress == "" {
		return fmt.Errorf("al_mac_address is required")
	}
	if _, err := wire.ParseMacString(c.AlMacAddress); err != nil {
		return fmt.Errorf("al_mac_address: %w", err)
	}
	if c.Verbosity < 0 || c.Verbosity > 3 {
		return fmt.Errorf("verbosity must be between 0 and 3, got %d", c.Verbosity)
	}
	return nil
}

// LogLevel maps the config's 0..3 verbosity onto a logging.Level.
func (c *Config) LogLevel() logging.Level {
	switch c.Verbosity {
	case 0:
		return logging.LevelError
	case 1:
		return logging.LevelWarning
	case 2:
		return logging.LevelInfo
	default:
		return logging.LevelDebug
	}
}
