// Package media decodes and plays streamed audio files on the shared
// output device. It exposes a small backend contract so the playback
// engine and its tests never depend on a real decoder or device.
package media

import (
	"errors"
	"time"
)

// Known container formats.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// ErrUnsupportedFormat indicates content in a format no decoder
// handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Backend opens decoded tracks from raw file bytes.
type Backend interface {
	// Open decodes data in the given format and prepares a track on the
	// output device. The track starts paused at position zero.
	Open(data []byte, format string) (Track, error)
}

// Track is one opened audio file on the device.
type Track interface {
	// Duration returns the decoded length.
	Duration() time.Duration

	// Position returns the audible position.
	Position() time.Duration

	// Play starts or resumes output.
	Play()

	// Pause suspends output, keeping position.
	Pause()

	// Seek moves to t. Allowed in any state.
	Seek(t time.Duration) error

	// SetVolume sets output volume in [0, 1].
	SetVolume(v float64)

	// SetRate sets the playback rate multiplier without changing pitch
	// correction behavior; audio plays faster or slower.
	SetRate(r float64) error

	// Done closes when the track plays to its natural end.
	Done() <-chan struct{}

	// Close releases the track.
	Close() error
}
