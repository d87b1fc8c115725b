package playback

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads playback configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("playback.engine") {
		cfg.Engine = viper.GetString("playback.engine")
	}
	if viper.IsSet("playback.language") {
		cfg.Language = viper.GetString("playback.language")
	}
	if viper.IsSet("playback.default_volume") {
		cfg.DefaultVolume = viper.GetFloat64("playback.default_volume")
	}
	if viper.IsSet("playback.default_rate") {
		cfg.DefaultRate = viper.GetFloat64("playback.default_rate")
	}
	if viper.IsSet("playback.stale_pause_threshold") {
		if d, err := time.ParseDuration(viper.GetString("playback.stale_pause_threshold")); err == nil {
			cfg.StalePauseThreshold = d
		}
	}
	if viper.IsSet("playback.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("playback.words_per_minute")
	}
	if viper.IsSet("playback.metadata_timeout") {
		if d, err := time.ParseDuration(viper.GetString("playback.metadata_timeout")); err == nil {
			cfg.MetadataTimeout = d
		}
	}
	if viper.IsSet("playback.voice_timeout") {
		if d, err := time.ParseDuration(viper.GetString("playback.voice_timeout")); err == nil {
			cfg.VoiceTimeout = d
		}
	}
	if viper.IsSet("playback.progress_interval") {
		if d, err := time.ParseDuration(viper.GetString("playback.progress_interval")); err == nil {
			cfg.ProgressInterval = d
		}
	}
	if viper.IsSet("playback.pause_on_hidden") {
		cfg.PauseOnHidden = viper.GetBool("playback.pause_on_hidden")
	}
	if viper.IsSet("playback.cache_capacity") {
		cfg.CacheCapacity = viper.GetInt("playback.cache_capacity")
	}

	cfg.Piper = loadPiperConfig()
	cfg.GTTS = loadGTTSConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid playback configuration: %w", err)
	}

	return cfg, nil
}

// loadPiperConfig loads piper-specific configuration from Viper.
func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("playback.piper.binary") {
		cfg.Binary = viper.GetString("playback.piper.binary")
	}
	if viper.IsSet("playback.piper.model") {
		cfg.Model = viper.GetString("playback.piper.model")
	}
	if viper.IsSet("playback.piper.model_path") {
		cfg.ModelPath = viper.GetString("playback.piper.model_path")
	}
	if viper.IsSet("playback.piper.config_path") {
		cfg.ConfigPath = viper.GetString("playback.piper.config_path")
	}
	if viper.IsSet("playback.piper.data_dir") {
		cfg.DataDir = viper.GetString("playback.piper.data_dir")
	}
	if viper.IsSet("playback.piper.sample_rate") {
		cfg.SampleRate = viper.GetInt("playback.piper.sample_rate")
	}
	if viper.IsSet("playback.piper.timeout") {
		if d, err := time.ParseDuration(viper.GetString("playback.piper.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadGTTSConfig loads network engine configuration from Viper.
func loadGTTSConfig() GTTSConfig {
	cfg := DefaultGTTSConfig()

	if viper.IsSet("playback.gtts.language") {
		cfg.Language = viper.GetString("playback.gtts.language")
	}
	if viper.IsSet("playback.gtts.timeout") {
		if d, err := time.ParseDuration(viper.GetString("playback.gtts.timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if viper.IsSet("playback.gtts.requests_per") {
		if d, err := time.ParseDuration(viper.GetString("playback.gtts.requests_per")); err == nil {
			cfg.RequestsPer = d
		}
	}
	if viper.IsSet("playback.gtts.burst") {
		cfg.Burst = viper.GetInt("playback.gtts.burst")
	}

	return cfg
}

// SetDefaults sets default values in Viper for playback configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("playback.engine", defaults.Engine)
	viper.SetDefault("playback.language", defaults.Language)
	viper.SetDefault("playback.default_volume", defaults.DefaultVolume)
	viper.SetDefault("playback.default_rate", defaults.DefaultRate)
	viper.SetDefault("playback.stale_pause_threshold", defaults.StalePauseThreshold.String())
	viper.SetDefault("playback.words_per_minute", defaults.WordsPerMinute)
	viper.SetDefault("playback.metadata_timeout", defaults.MetadataTimeout.String())
	viper.SetDefault("playback.voice_timeout", defaults.VoiceTimeout.String())
	viper.SetDefault("playback.progress_interval", defaults.ProgressInterval.String())
	viper.SetDefault("playback.pause_on_hidden", defaults.PauseOnHidden)
	viper.SetDefault("playback.cache_capacity", defaults.CacheCapacity)

	viper.SetDefault("playback.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("playback.piper.model", defaults.Piper.Model)
	viper.SetDefault("playback.piper.sample_rate", defaults.Piper.SampleRate)
	viper.SetDefault("playback.piper.timeout", defaults.Piper.Timeout.String())

	viper.SetDefault("playback.gtts.language", defaults.GTTS.Language)
	viper.SetDefault("playback.gtts.timeout", defaults.GTTS.Timeout.String())
	viper.SetDefault("playback.gtts.requests_per", defaults.GTTS.RequestsPer.String())
	viper.SetDefault("playback.gtts.burst", defaults.GTTS.Burst)
}
