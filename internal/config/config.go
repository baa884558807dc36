// Package config loads mudra's process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "mudra.db"

// Config is the process configuration. Gesture tuning is not here; it lives
// in the settings store and can change at runtime.
type Config struct {
	Addr      string `env:"MUDRA_ADDR"       envDefault:":8080"`
	DataDir   string `env:"MUDRA_DATA_DIR"`
	StaticDir string `env:"MUDRA_STATIC_DIR"`

	CameraID        int     `env:"MUDRA_CAMERA_ID"        envDefault:"0"`
	MotionThreshold float64 `env:"MUDRA_MOTION_THRESHOLD" envDefault:"1.0"`
	MaxHands        int     `env:"MUDRA_MAX_HANDS"        envDefault:"2"`
	// Replay plays recorded JSON-lines hand frames instead of running
	// MediaPipe.
	Replay  string `env:"MUDRA_REPLAY"`
	Preview bool   `env:"MUDRA_PREVIEW" envDefault:"true"`

	Tray bool `env:"MUDRA_TRAY" envDefault:"false"`
}

// Load parses the environment. An empty DataDir resolves to ~/.mudra.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".mudra")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that the environment parser cannot.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("MUDRA_ADDR must not be empty"))
	}
	if c.MotionThreshold <= 0 || c.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("MUDRA_MOTION_THRESHOLD must be in (0, 100], got %v", c.MotionThreshold))
	}
	if c.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("MUDRA_MAX_HANDS must be at least 1, got %d", c.MaxHands))
	}
	if c.CameraID < 0 {
		errs = append(errs, fmt.Errorf("MUDRA_CAMERA_ID must not be negative, got %d", c.CameraID))
	}
	return errors.Join(errs...)
}

// DatabasePath returns the SQLite file path.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}
