package config

import (
	"fmt"
	"regexp"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultInstance names the engine instance when VIGIL_INSTANCE is unset.
	DefaultInstance = "default"

	// MaxNameLength is the maximum length for an instance name (DNS-compatible)
	MaxNameLength = 63
)

// NamePattern matches valid instance names: lowercase alphanumeric, hyphens
// allowed but not at start or end.
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// Host holds process-level settings that come from the environment rather
// than from vigil.yml.
type Host struct {
	Instance  string `env:"VIGIL_INSTANCE" envDefault:"default"`
	RedisURL  string `env:"VIGIL_REDIS_URL"`
	SQLDriver string `env:"VIGIL_SQL_DRIVER" envDefault:"sqlite"`
	SQLDSN    string `env:"VIGIL_SQL_DSN"`
	LogPath   string `env:"VIGIL_LOG_PATH"`
	LogLevel  string `env:"VIGIL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"VIGIL_LOG_FORMAT" envDefault:"json"`
}

// LoadHost reads host settings from the process environment.
func LoadHost() (Host, error) {
	var h Host
	if err := env.Parse(&h); err != nil {
		return Host{}, fmt.Errorf("parse env: %w", err)
	}
	if err := ValidateName(h.Instance); err != nil {
		return Host{}, err
	}
	return h, nil
}

// ValidateName checks if an instance name is valid according to DNS naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
