package ui

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains TUI-specific configuration.
type Config struct {
	HomeDir      string `env:"HOME"`
	GlamourStyle string `env:"GLAMOUR_STYLE"`

	// MaxWidth wraps the text preview.
	MaxWidth uint

	// StartTime is where playback begins.
	StartTime time.Duration

	// For debugging the UI
	GlamourEnabled bool `env:"DIGESTS_PLAY_ENABLE_GLAMOUR" envDefault:"true"`
}

// LoadConfig reads TUI configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, fmt.Errorf("parsing ui environment: %w", err)
	}
	return cfg, nil
}
