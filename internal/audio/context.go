// Package audio owns the process-wide audio output device. It wraps the
// oto context behind small interfaces so everything above it can run
// against a mock device in tests and on machines without audio hardware.
package audio

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Output format of the shared device. The device is opened once per
// process; every producer converts to this format before writing.
const (
	SampleRate = 44100
	Channels   = 2
	BitDepth   = 16

	BytesPerFrame = Channels * BitDepth / 8
)

// Context abstracts the audio output device.
type Context interface {
	// NewPlayer creates a player reading s16le frames from r in the
	// context's format.
	NewPlayer(r io.Reader) (Player, error)

	// SampleRate returns the device sample rate.
	SampleRate() int

	// ChannelCount returns the device channel count.
	ChannelCount() int

	// Close releases the device.
	Close() error
}

// Player abstracts one output stream on the device.
type Player interface {
	// Play starts or resumes output.
	Play()

	// Pause suspends output without losing position.
	Pause()

	// IsPlaying reports whether output is running.
	IsPlaying() bool

	// SetVolume sets the output volume in [0, 1].
	SetVolume(v float64)

	// Seek repositions the underlying reader and flushes buffered audio.
	// The source reader must support seeking.
	Seek(offset int64, whence int) (int64, error)

	// UnplayedBufferSize returns the byte count written to the device
	// but not yet audible.
	UnplayedBufferSize() int64

	// Close releases the player.
	Close() error
}

var (
	sharedContext Context
	sharedOnce    sync.Once
	sharedErr     error
)

// mockRequested reports whether the environment asks for a silent mock
// device, as in CI or headless test runs.
func mockRequested() bool {
	if os.Getenv("DIGESTS_PLAY_MOCK_AUDIO") == "true" {
		return true
	}
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE"} {
		if val := os.Getenv(v); val != "" && val != "false" {
			log.Debug("mock audio selected", "variable", v)
			return true
		}
	}
	return false
}

// Shared returns the process-wide audio context, opening the device on
// first call. The device can only be opened once per process, so every
// consumer must go through here.
func Shared() (Context, error) {
	sharedOnce.Do(func() {
		if mockRequested() {
			sharedContext = NewMockContext()
			return
		}
		sharedContext, sharedErr = newOtoContext(SampleRate, Channels)
	})
	return sharedContext, sharedErr
}

// SetShared replaces the shared context. Testing hook.
func SetShared(ctx Context) {
	sharedOnce.Do(func() {})
	sharedContext = ctx
	sharedErr = nil
}

// FrameDuration returns the playback time covered by n bytes of device
// format audio.
func FrameDuration(n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	frames := n / BytesPerFrame
	return time.Duration(frames) * time.Second / SampleRate
}
