package playback

import (
	"strings"

	"github.com/google/uuid"

	"github.com/BumpyClock/digests-audio/playback/speech"
	"github.com/BumpyClock/digests-audio/playback/speech/gtts"
	"github.com/BumpyClock/digests-audio/playback/speech/piper"
)

// SourceOptions describes the content a source should play.
type SourceOptions struct {
	// Metadata describes the playable unit. An empty ID gets a
	// generated one.
	Metadata Metadata

	// AudioURL points at a playable audio file. When set, file playback
	// wins over speech.
	AudioURL string

	// Text is article content for speech synthesis, markdown or plain.
	Text string

	// Config holds engine tunables; the zero value means defaults.
	Config Config
}

// NewBestSource picks the best playback mechanism for opts: a file
// source when an audio URL is present, a speech source when only text
// is, and an INVALID_INPUT error when neither is.
func NewBestSource(opts SourceOptions) (Source, error) {
	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}

	meta := opts.Metadata
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}

	if strings.TrimSpace(opts.AudioURL) != "" {
		return NewFileSource(meta, opts.AudioURL, cfg)
	}
	if strings.TrimSpace(opts.Text) != "" {
		src, err := NewSpeechSource(meta, opts.Text, cfg)
		if err != nil {
			return nil, err
		}
		src.SetSynthesizer(newSynthesizer(cfg))
		return src, nil
	}
	return nil, NewError(ErrorCodeInvalidInput, "source needs an audio URL or text content", ErrNoContent)
}

// newSynthesizer builds the configured speech engine.
func newSynthesizer(cfg Config) speech.Synthesizer {
	switch cfg.Engine {
	case "piper":
		return piper.New(piper.Config{
			Binary:     cfg.Piper.Binary,
			Model:      cfg.Piper.Model,
			ModelPath:  cfg.Piper.ModelPath,
			ConfigPath: cfg.Piper.ConfigPath,
			DataDir:    cfg.Piper.DataDir,
			SampleRate: cfg.Piper.SampleRate,
			Timeout:    cfg.Piper.Timeout,
		})
	case "gtts":
		return gtts.New(gtts.Config{
			Language:    cfg.GTTS.Language,
			Timeout:     cfg.GTTS.Timeout,
			RequestsPer: cfg.GTTS.RequestsPer,
			Burst:       cfg.GTTS.Burst,
		})
	default:
		return speech.NewMockSynthesizer()
	}
}
