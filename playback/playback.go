// Package playback implements the unified audio playback engine for Digests.
// It exposes a single Source abstraction over two backends: streamed audio
// files and synthesized speech. Callers construct a source through the
// factory, drive it with transport operations and observe it through typed
// events; they never touch the underlying audio device or speech engine.
package playback

import (
	"context"
	"time"
)

// SourceType discriminates the concrete playback mechanism behind a Source.
type SourceType string

const (
	// TypeFile identifies a source backed by a streamed audio file.
	TypeFile SourceType = "file"

	// TypeSpeech identifies a source backed by speech synthesis.
	TypeSpeech SourceType = "speech"
)

// Source is the unified playback abstraction. All runtime failures surface
// through error events; transport methods return a non-nil error only for
// caller misuse (operating on a disposed source).
type Source interface {
	// ID returns the stable identifier of this source.
	ID() string

	// Type returns the concrete backend discriminator.
	Type() SourceType

	// Metadata returns the immutable descriptive metadata.
	Metadata() Metadata

	// State returns a snapshot of the current playback state.
	State() State

	// Initialize acquires the underlying audio capability and registers
	// lifecycle listeners. It is idempotent and reports false, after
	// emitting a single error event, when the capability is unavailable.
	Initialize(ctx context.Context) bool

	// Load prepares content for playback without starting it.
	Load(ctx context.Context, opts *LoadOptions) error

	// Play starts or restarts playback, loading first when needed.
	Play(ctx context.Context, opts *PlayOptions) error

	// Pause freezes the current position.
	Pause() error

	// Resume continues from the paused position.
	Resume() error

	// Stop halts playback and resets the position to zero.
	Stop() error

	// Seek moves to the given position, clamped to [0, duration].
	Seek(t time.Duration) error

	// SetVolume sets the output volume, clamped to [0, 1].
	SetVolume(v float64) error

	// SetRate sets the playback rate multiplier.
	SetRate(r float64) error

	// Dispose releases the backend and all listeners. Terminal and
	// safe to call multiple times.
	Dispose() error

	// AddListener registers a listener for the given event type.
	AddListener(t EventType, fn Listener) ListenerID

	// RemoveListener removes a previously registered listener.
	RemoveListener(t EventType, id ListenerID)
}

// LoadOptions adjusts content preparation.
type LoadOptions struct {
	// SkipMetadataProbe disables the bounded duration probe for file
	// sources.
	SkipMetadataProbe bool
}

// PlayOptions adjusts playback start.
type PlayOptions struct {
	// StartTime is the position to begin playback from.
	StartTime time.Duration
}
