package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# play without the interactive player
plain: false

playback:
  # speech synthesis engine: mock, piper, or gtts
  engine: "mock"
  # preferred voice language for speech sources
  language: "en"
  # volume applied to new sources (0.0 to 1.0)
  default_volume: 1.0
  # playback rate applied to new sources (0.25 to 4.0)
  default_rate: 1.0
  # how long a pause may last before resume re-synthesizes speech
  stale_pause_threshold: "5s"
  # speaking speed assumed when estimating article length
  words_per_minute: 150
  # upper bound on the duration probe when loading audio files
  metadata_timeout: "5s"
  # upper bound on voice enumeration
  voice_timeout: "1s"
  # how often progress events fire during playback
  progress_interval: "33ms"
  # pause playback when the terminal is suspended
  pause_on_hidden: true
  # synthesized chunks kept in the in-memory cache
  cache_capacity: 32

  # local piper engine
  piper:
    binary: "piper"
    model: "en_US-lessac-medium"
    # model_path: "/path/to/model.onnx"
    # config_path: "/path/to/model.onnx.json"
    # data_dir: "/usr/share/piper"
    sample_rate: 22050
    timeout: "30s"

  # network synthesis engine
  gtts:
    language: "en"
    timeout: "10s"
    requests_per: "1s"
    burst: 3
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the digests-play config file",
	Long:    paragraph(fmt.Sprintf("\n%s the digests-play config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("digests-play config\ndigests-play config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("digests-play", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
