package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/k1LoW/expand"
)

var (
	homePath       string
	configHomePath string
	stateHomePath  string
)

// Config holds user defaults for the emitted declaration.
type Config struct {
	// Name of the emitted constant
	ConstName string `yaml:"constName,omitempty" json:"constName,omitempty"`
	// Name of the record type holding the matrix
	TypeName string `yaml:"typeName,omitempty" json:"typeName,omitempty"`
	// Name of the field holding the matrix
	FieldName string `yaml:"fieldName,omitempty" json:"fieldName,omitempty"`
	// First line of the declaration, may contain {{ }} expressions
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
	// Last line of the declaration, may contain {{ }} expressions
	Footer string `yaml:"footer,omitempty" json:"footer,omitempty"`
	// Indent *string so an empty indent can be configured explicitly
	Indent *string `yaml:"indent,omitempty" json:"indent,omitempty"`
	// Number of row bands thresholded in parallel
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
}

func init() {
	var err error
	homePath, err = os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
}

// Load loads the configuration from the config file.
// It searches for config files in the following order:
// 1. $XDG_CONFIG_HOME/pixmap/config-{profile}.yml
// 2. $XDG_CONFIG_HOME/pixmap/config.yml
// Environment variables in the file are expanded before parsing.
// If no config file is found, it returns an empty Config struct.
func Load(profile string) (*Config, error) {
	var configBasePaths []string
	if profile != "" {
		configBasePaths = append(configBasePaths, filepath.Join(configPath(), fmt.Sprintf("config-%s", profile)))
	}
	configBasePaths = append(configBasePaths, filepath.Join(configPath(), "config"))
	cfg := &Config{}
	for _, basePath := range configBasePaths {
		for _, ext := range []string{".yml", ".yaml"} {
			p := basePath + ext
			b, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(expand.ExpandenvYAMLBytes(b), cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config %s: %w", p, err)
			}
			if cfg.Concurrency < 0 {
				return nil, fmt.Errorf("invalid concurrency in %s: %d", p, cfg.Concurrency)
			}
			return cfg, nil
		}
	}
	return cfg, nil
}

// configPath returns the path to the configuration directory.
func configPath() string {
	if configHomePath != "" {
		return configHomePath
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		configHomePath = filepath.Join(v, "pixmap")
	} else {
		configHomePath = filepath.Join(homePath, ".config", "pixmap")
	}
	return configHomePath
}

// StateHomePath returns the directory where error dumps are written.
func StateHomePath() string {
	if stateHomePath != "" {
		return stateHomePath
	}
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		stateHomePath = filepath.Join(v, "pixmap")
	} else {
		stateHomePath = filepath.Join(homePath, ".local", "state", "pixmap")
	}
	return stateHomePath
}
