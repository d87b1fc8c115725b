package playback

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when a Config field is left zero.
const (
	defaultStalePauseThreshold = 5 * time.Second
	defaultWordsPerMinute      = 150
	defaultMetadataTimeout     = 5 * time.Second
	defaultVoiceTimeout        = time.Second
	defaultProgressInterval    = 33 * time.Millisecond
	defaultVolume              = 1.0
	defaultRate                = 1.0
)

// Config contains all playback engine configuration options.
type Config struct {
	// Engine selects the speech synthesis engine.
	Engine string `yaml:"engine" env:"DIGESTS_PLAY_ENGINE" envDefault:"mock"`

	// Language is the preferred voice language for speech sources.
	Language string `yaml:"language" env:"DIGESTS_PLAY_LANGUAGE" envDefault:"en"`

	// DefaultVolume is the volume applied to new sources, in [0, 1].
	DefaultVolume float64 `yaml:"default_volume" env:"DIGESTS_PLAY_DEFAULT_VOLUME" envDefault:"1.0"`

	// DefaultRate is the playback rate applied to new sources.
	DefaultRate float64 `yaml:"default_rate" env:"DIGESTS_PLAY_DEFAULT_RATE" envDefault:"1.0"`

	// StalePauseThreshold is how long a speech source may stay paused
	// before a resume re-synthesizes from the paused position instead of
	// continuing the buffered audio.
	StalePauseThreshold time.Duration `yaml:"stale_pause_threshold" env:"DIGESTS_PLAY_STALE_PAUSE_THRESHOLD" envDefault:"5s"`

	// WordsPerMinute drives the speech duration estimate.
	WordsPerMinute int `yaml:"words_per_minute" env:"DIGESTS_PLAY_WORDS_PER_MINUTE" envDefault:"150"`

	// MetadataTimeout bounds the duration probe for file sources.
	MetadataTimeout time.Duration `yaml:"metadata_timeout" env:"DIGESTS_PLAY_METADATA_TIMEOUT" envDefault:"5s"`

	// VoiceTimeout bounds how long voice enumeration may block.
	VoiceTimeout time.Duration `yaml:"voice_timeout" env:"DIGESTS_PLAY_VOICE_TIMEOUT" envDefault:"1s"`

	// ProgressInterval is the polling period of the progress loop.
	ProgressInterval time.Duration `yaml:"progress_interval" env:"DIGESTS_PLAY_PROGRESS_INTERVAL" envDefault:"33ms"`

	// PauseOnHidden pauses playback when the host reports it went hidden.
	PauseOnHidden bool `yaml:"pause_on_hidden" env:"DIGESTS_PLAY_PAUSE_ON_HIDDEN" envDefault:"true"`

	// CacheCapacity is the maximum number of synthesized chunks kept in
	// the in-memory audio cache.
	CacheCapacity int `yaml:"cache_capacity" env:"DIGESTS_PLAY_CACHE_CAPACITY" envDefault:"32"`

	// Engine-specific configurations
	Piper PiperConfig `yaml:"piper"`
	GTTS  GTTSConfig  `yaml:"gtts"`
}

// PiperConfig contains settings for the local piper synthesis engine.
type PiperConfig struct {
	Binary     string        `yaml:"binary" env:"DIGESTS_PLAY_PIPER_BINARY" envDefault:"piper"`
	Model      string        `yaml:"model" env:"DIGESTS_PLAY_PIPER_MODEL" envDefault:"en_US-lessac-medium"`
	ModelPath  string        `yaml:"model_path" env:"DIGESTS_PLAY_PIPER_MODEL_PATH"`
	ConfigPath string        `yaml:"config_path" env:"DIGESTS_PLAY_PIPER_CONFIG_PATH"`
	DataDir    string        `yaml:"data_dir" env:"DIGESTS_PLAY_PIPER_DATA_DIR"`
	SampleRate int           `yaml:"sample_rate" env:"DIGESTS_PLAY_PIPER_SAMPLE_RATE" envDefault:"22050"`
	Timeout    time.Duration `yaml:"timeout" env:"DIGESTS_PLAY_PIPER_TIMEOUT" envDefault:"30s"`
}

// GTTSConfig contains settings for the network synthesis engine.
type GTTSConfig struct {
	Language    string        `yaml:"language" env:"DIGESTS_PLAY_GTTS_LANGUAGE" envDefault:"en"`
	Timeout     time.Duration `yaml:"timeout" env:"DIGESTS_PLAY_GTTS_TIMEOUT" envDefault:"10s"`
	RequestsPer time.Duration `yaml:"requests_per" env:"DIGESTS_PLAY_GTTS_REQUESTS_PER" envDefault:"1s"`
	Burst       int           `yaml:"burst" env:"DIGESTS_PLAY_GTTS_BURST" envDefault:"3"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:              "mock",
		Language:            "en",
		DefaultVolume:       defaultVolume,
		DefaultRate:         defaultRate,
		StalePauseThreshold: defaultStalePauseThreshold,
		WordsPerMinute:      defaultWordsPerMinute,
		MetadataTimeout:     defaultMetadataTimeout,
		VoiceTimeout:        defaultVoiceTimeout,
		ProgressInterval:    defaultProgressInterval,
		PauseOnHidden:       true,
		CacheCapacity:       32,
		Piper:               DefaultPiperConfig(),
		GTTS:                DefaultGTTSConfig(),
	}
}

// DefaultPiperConfig returns default piper engine configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "piper",
		Model:      "en_US-lessac-medium",
		SampleRate: 22050,
		Timeout:    30 * time.Second,
	}
}

// DefaultGTTSConfig returns default network engine configuration.
func DefaultGTTSConfig() GTTSConfig {
	return GTTSConfig{
		Language:    "en",
		Timeout:     10 * time.Second,
		RequestsPer: time.Second,
		Burst:       3,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"mock", "piper", "gtts"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("invalid speech engine '%s': must be one of %v", c.Engine, validEngines)
	}

	if c.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if c.DefaultVolume < 0.0 || c.DefaultVolume > 1.0 {
		return fmt.Errorf("default_volume must be between 0.0 and 1.0, got %f", c.DefaultVolume)
	}

	if c.DefaultRate < 0.25 || c.DefaultRate > 4.0 {
		return fmt.Errorf("default_rate must be between 0.25 and 4.0, got %f", c.DefaultRate)
	}

	if c.StalePauseThreshold < 0 {
		return fmt.Errorf("stale_pause_threshold cannot be negative, got %v", c.StalePauseThreshold)
	}

	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("words_per_minute must be between 50 and 500, got %d", c.WordsPerMinute)
	}

	if c.MetadataTimeout < time.Second {
		return fmt.Errorf("metadata_timeout must be at least 1 second, got %v", c.MetadataTimeout)
	}

	if c.ProgressInterval < 10*time.Millisecond {
		return fmt.Errorf("progress_interval must be at least 10ms, got %v", c.ProgressInterval)
	}

	if c.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", c.CacheCapacity)
	}

	switch c.Engine {
	case "piper":
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper config: %w", err)
		}
	case "gtts":
		if err := c.GTTS.Validate(); err != nil {
			return fmt.Errorf("gtts config: %w", err)
		}
	}

	return nil
}

// Validate checks if the piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("piper binary path cannot be empty")
	}

	if c.Model == "" {
		return fmt.Errorf("piper model cannot be empty")
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}

	return nil
}

// Validate checks if the network engine configuration is valid.
func (c *GTTSConfig) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}

	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}

	return nil
}
