// Package main provides the entry point for the digests-play CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/BumpyClock/digests-audio/playback"
	"github.com/BumpyClock/digests-audio/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	plain      bool
	engine     string
	language   string
	volume     float64
	rateFlag   float64
	startAt    time.Duration
	title      string
	width      uint

	rootCmd = &cobra.Command{
		Use:   "digests-play [SOURCE]",
		Short: "Listen to articles and podcasts on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nListen to articles and podcasts, %s.", keyword("right from your terminal")),
		),
		Example:          paragraph("digests-play episode.mp3\ndigests-play https://example.com/feed/article.md\ncat notes.md | digests-play -"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source is a resolved playable input: either an audio URL for file
// playback or text content for speech synthesis.
type source struct {
	audioURL string
	text     string
	title    string
	origin   string
}

// audioExtensions are played directly instead of being spoken.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".wave": true,
}

func isAudioPath(p string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(p))]
}

// sourceFromArg resolves an argument into a playable source. Audio
// files and URLs play as-is; anything else is read as text to speak.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return sourceFromReader(os.Stdin, "stdin")
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		if isAudioPath(u.Path) {
			return &source{audioURL: arg, title: filepath.Base(u.Path), origin: arg}, nil
		}
		resp, err := http.Get(u.String()) //nolint:noctx
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		src, err := sourceFromReader(resp.Body, arg)
		if err != nil {
			return nil, err
		}
		src.title = filepath.Base(u.Path)
		return src, nil
	}

	// a local file:
	if isAudioPath(arg) {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("unable to get absolute path: %w", err)
		}
		return &source{audioURL: abs, title: filepath.Base(arg), origin: abs}, nil
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	defer r.Close() //nolint:errcheck
	src, err := sourceFromReader(r, arg)
	if err != nil {
		return nil, err
	}
	src.title = filepath.Base(arg)
	return src, nil
}

func sourceFromReader(r io.Reader, origin string) (*source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read from reader: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, errors.New("source is empty")
	}
	return &source{text: string(b), origin: origin}, nil
}

func validateOptions(cmd *cobra.Command) error {
	plain = viper.GetBool("plain")

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal {
		plain = true
	}

	// Detect terminal width for the text preview.
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	src, err := resolveSource(args)
	if err != nil {
		return err
	}

	cfg, err := playback.LoadConfigFromViper()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)

	meta := playback.Metadata{
		Title:  src.title,
		Source: src.origin,
	}
	if cmd.Flags().Changed("title") {
		meta.Title = title
	}

	player, err := playback.NewBestSource(playback.SourceOptions{
		Metadata: meta,
		AudioURL: src.audioURL,
		Text:     src.text,
		Config:   cfg,
	})
	if err != nil {
		return err
	}
	defer player.Dispose() //nolint:errcheck

	if plain {
		return runPlain(cmd, player, src.text)
	}
	return runTUI(player, src.text)
}

// resolveSource picks the input: piped stdin wins, then the argument.
func resolveSource(args []string) (*source, error) {
	if yes, err := stdinIsPipe(); err != nil {
		return nil, err
	} else if yes {
		return sourceFromReader(os.Stdin, "stdin")
	}
	if len(args) == 0 {
		return nil, errors.New("missing audio or text source")
	}
	return sourceFromArg(args[0])
}

// applyFlagOverrides lets explicit flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *playback.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.Engine = engine
	}
	if cmd.Flags().Changed("language") {
		cfg.Language = language
	}
	if cmd.Flags().Changed("volume") {
		cfg.DefaultVolume = volume
	}
	if cmd.Flags().Changed("rate") {
		cfg.DefaultRate = rateFlag
	}
}

func startOptions(cmd *cobra.Command) *playback.PlayOptions {
	if !cmd.Flags().Changed("start") {
		return nil
	}
	return &playback.PlayOptions{StartTime: startAt}
}

func runTUI(player playback.Source, content string) error {
	cfg, err := ui.LoadConfig()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.MaxWidth = width
	cfg.StartTime = startAt

	if _, err := ui.NewProgram(cfg, player, content).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	playback.SetDefaults()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "play without the interactive player")
	rootCmd.Flags().StringVarP(&engine, "engine", "e", "", "speech engine (mock, piper, gtts)")
	rootCmd.Flags().StringVar(&language, "language", "", "preferred voice language for speech")
	rootCmd.Flags().Float64Var(&volume, "volume", 1.0, "initial volume (0.0 to 1.0)")
	rootCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 1.0, "playback rate multiplier")
	rootCmd.Flags().DurationVar(&startAt, "start", 0, "start playback at this offset (e.g. 1m30s)")
	rootCmd.Flags().StringVar(&title, "title", "", "override the displayed title")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap the text preview at width (set to 0 to auto-detect)")

	// Config bindings
	_ = viper.BindPFlag("plain", rootCmd.Flags().Lookup("plain"))
	_ = viper.BindPFlag("playback.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("playback.language", rootCmd.Flags().Lookup("language"))
	_ = viper.BindPFlag("playback.default_volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("playback.default_rate", rootCmd.Flags().Lookup("rate"))

	viper.SetDefault("plain", false)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "digests-play")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "digests-play")}, dirs...)
	}

	if c := os.Getenv("DIGESTS_PLAY_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("digests-play")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("digests_play")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "digests-play.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
