package playback

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Engine != "mock" {
		t.Errorf("Default engine should be mock, got %s", cfg.Engine)
	}
	if cfg.StalePauseThreshold != 5*time.Second {
		t.Errorf("Default stale pause threshold should be 5s, got %v", cfg.StalePauseThreshold)
	}
	if cfg.WordsPerMinute != 150 {
		t.Errorf("Default words per minute should be 150, got %d", cfg.WordsPerMinute)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "engine is case-insensitive",
			modify:  func(c *Config) { c.Engine = "PIPER" },
			wantErr: false,
		},
		{
			name:    "unknown engine",
			modify:  func(c *Config) { c.Engine = "espeak" },
			wantErr: true,
			errMsg:  "invalid speech engine",
		},
		{
			name:    "empty language",
			modify:  func(c *Config) { c.Language = "" },
			wantErr: true,
			errMsg:  "language",
		},
		{
			name:    "volume too high",
			modify:  func(c *Config) { c.DefaultVolume = 1.5 },
			wantErr: true,
			errMsg:  "default_volume",
		},
		{
			name:    "volume negative",
			modify:  func(c *Config) { c.DefaultVolume = -0.1 },
			wantErr: true,
			errMsg:  "default_volume",
		},
		{
			name:    "rate too low",
			modify:  func(c *Config) { c.DefaultRate = 0.1 },
			wantErr: true,
			errMsg:  "default_rate",
		},
		{
			name:    "rate too high",
			modify:  func(c *Config) { c.DefaultRate = 5.0 },
			wantErr: true,
			errMsg:  "default_rate",
		},
		{
			name:    "negative stale pause threshold",
			modify:  func(c *Config) { c.StalePauseThreshold = -time.Second },
			wantErr: true,
			errMsg:  "stale_pause_threshold",
		},
		{
			name:    "words per minute out of range",
			modify:  func(c *Config) { c.WordsPerMinute = 20 },
			wantErr: true,
			errMsg:  "words_per_minute",
		},
		{
			name:    "metadata timeout too short",
			modify:  func(c *Config) { c.MetadataTimeout = 100 * time.Millisecond },
			wantErr: true,
			errMsg:  "metadata_timeout",
		},
		{
			name:    "progress interval too short",
			modify:  func(c *Config) { c.ProgressInterval = time.Millisecond },
			wantErr: true,
			errMsg:  "progress_interval",
		},
		{
			name:    "cache capacity zero",
			modify:  func(c *Config) { c.CacheCapacity = 0 },
			wantErr: true,
			errMsg:  "cache_capacity",
		},
		{
			name: "invalid piper config checked when selected",
			modify: func(c *Config) {
				c.Engine = "piper"
				c.Piper.Binary = ""
			},
			wantErr: true,
			errMsg:  "piper config",
		},
		{
			name: "invalid gtts config checked when selected",
			modify: func(c *Config) {
				c.Engine = "gtts"
				c.GTTS.Burst = 0
			},
			wantErr: true,
			errMsg:  "gtts config",
		},
		{
			name: "engine configs ignored when unselected",
			modify: func(c *Config) {
				c.Piper.Binary = ""
				c.GTTS.Burst = 0
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
		})
	}
}

func TestValidateLowercasesEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine = "GTTS"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Engine != "gtts" {
		t.Errorf("Expected engine to be lowercased, got %q", cfg.Engine)
	}
}

func TestLoadConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("playback.engine", "piper")
	viper.Set("playback.language", "de")
	viper.Set("playback.default_rate", 1.5)
	viper.Set("playback.stale_pause_threshold", "8s")
	viper.Set("playback.words_per_minute", 180)
	viper.Set("playback.piper.model", "de_DE-thorsten-medium")
	viper.Set("playback.piper.timeout", "45s")

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper failed: %v", err)
	}

	if cfg.Engine != "piper" {
		t.Errorf("Expected engine piper, got %s", cfg.Engine)
	}
	if cfg.Language != "de" {
		t.Errorf("Expected language de, got %s", cfg.Language)
	}
	if cfg.DefaultRate != 1.5 {
		t.Errorf("Expected rate 1.5, got %f", cfg.DefaultRate)
	}
	if cfg.StalePauseThreshold != 8*time.Second {
		t.Errorf("Expected threshold 8s, got %v", cfg.StalePauseThreshold)
	}
	if cfg.WordsPerMinute != 180 {
		t.Errorf("Expected 180 wpm, got %d", cfg.WordsPerMinute)
	}
	if cfg.Piper.Model != "de_DE-thorsten-medium" {
		t.Errorf("Expected piper model override, got %s", cfg.Piper.Model)
	}
	if cfg.Piper.Timeout != 45*time.Second {
		t.Errorf("Expected piper timeout 45s, got %v", cfg.Piper.Timeout)
	}

	// Untouched keys keep their defaults.
	if cfg.DefaultVolume != 1.0 {
		t.Errorf("Expected default volume 1.0, got %f", cfg.DefaultVolume)
	}
	if cfg.CacheCapacity != 32 {
		t.Errorf("Expected default cache capacity 32, got %d", cfg.CacheCapacity)
	}
}

func TestLoadConfigFromViperRejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	viper.Set("playback.engine", "espeak")
	if _, err := LoadConfigFromViper(); err == nil {
		t.Error("Expected invalid engine to fail loading")
	}
}
