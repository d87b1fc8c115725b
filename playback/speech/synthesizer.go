package speech

import (
	"context"
	"errors"
)

// Common synthesizer errors.
var (
	// ErrNoVoices indicates the engine exposes no usable voices.
	ErrNoVoices = errors.New("no voices available")

	// ErrEngineUnavailable indicates the engine cannot run in this
	// environment, e.g. a missing binary or no network.
	ErrEngineUnavailable = errors.New("speech engine unavailable")
)

// Voice describes one synthesis voice.
type Voice struct {
	// ID is the engine-specific voice identifier.
	ID string

	// Name is the display name.
	Name string

	// Language is a BCP 47 tag or bare language code, e.g. "en-US" or
	// "en".
	Language string

	// Local reports whether synthesis runs on this machine rather than
	// over the network.
	Local bool
}

// Request is one synthesis job.
type Request struct {
	// Text is the plain text to speak.
	Text string

	// Voice selects the voice; the zero value means engine default.
	Voice Voice

	// Rate is the speaking rate multiplier.
	Rate float64
}

// Audio is the synthesized result as raw PCM, signed 16-bit
// little-endian.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Synthesizer converts text to audio. Implementations must be safe for
// concurrent use.
type Synthesizer interface {
	// Name returns the engine name.
	Name() string

	// Available reports whether the engine can synthesize in this
	// environment.
	Available(ctx context.Context) bool

	// Voices enumerates usable voices. Implementations should honor ctx
	// cancellation; enumeration may hit disk or network.
	Voices(ctx context.Context) ([]Voice, error)

	// Synthesize converts one request to audio.
	Synthesize(ctx context.Context, req Request) (Audio, error)

	// Close releases engine resources.
	Close() error
}
