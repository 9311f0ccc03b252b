// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Suite   SuiteConfig   `toml:"suite"`
	Surface SurfaceConfig `toml:"surface"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`
}

// SuiteConfig maps suite sequencing settings.
type SuiteConfig struct {
	Categories  []string `toml:"categories"`
	Type        *string  `toml:"type"`
	PartTimeout *string  `toml:"part-timeout"`
	BaseExamID  *string  `toml:"base-exam-id"`
}

// SurfaceConfig maps the part runner settings.
type SurfaceConfig struct {
	Command []string `toml:"command"`
}

// StoreConfig maps storage settings.
type StoreConfig struct {
	Path       *string `toml:"path"`
	MaxRecords *int    `toml:"max-records"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ParsePartTimeout parses a part-timeout value. Empty and "0" disable the timeout.
func ParsePartTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid part-timeout %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("part-timeout must be >= 0")
	}
	return d, nil
}
