package media

import (
	"fmt"
	"sync"
	"time"
)

// MockBackend opens MockTracks without touching a decoder or device.
// It backs the engine tests.
type MockBackend struct {
	mu sync.Mutex

	// OpenErr makes the next Open fail.
	OpenErr error

	// TrackDuration is assigned to opened tracks.
	TrackDuration time.Duration

	tracks []*MockTrack
}

// NewMockBackend creates a backend producing tracks of duration d.
func NewMockBackend(d time.Duration) *MockBackend {
	return &MockBackend{TrackDuration: d}
}

func (b *MockBackend) Open(data []byte, format string) (Track, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OpenErr != nil {
		err := b.OpenErr
		b.OpenErr = nil
		return nil, err
	}
	if format != FormatMP3 && format != FormatWAV {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	t := &MockTrack{
		duration: b.TrackDuration,
		volume:   1.0,
		rate:     1.0,
		done:     make(chan struct{}),
	}
	b.tracks = append(b.tracks, t)
	return t, nil
}

// Tracks returns every track opened so far.
func (b *MockBackend) Tracks() []*MockTrack {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*MockTrack, len(b.tracks))
	copy(out, b.tracks)
	return out
}

// MockTrack advances only when a test calls Advance or Finish, so
// timing-sensitive behavior stays deterministic.
type MockTrack struct {
	mu       sync.Mutex
	duration time.Duration
	position time.Duration
	volume   float64
	rate     float64
	playing  bool
	closed   bool
	ended    bool
	done     chan struct{}
}

func (t *MockTrack) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *MockTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *MockTrack) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.playing = true
	}
}

func (t *MockTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
}

func (t *MockTrack) Seek(target time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("track is closed")
	}
	if target < 0 {
		target = 0
	}
	if target > t.duration {
		target = t.duration
	}
	t.position = target
	if t.ended && target < t.duration {
		t.ended = false
		t.done = make(chan struct{})
	}
	return nil
}

func (t *MockTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
}

func (t *MockTrack) SetRate(r float64) error {
	if r <= 0 {
		return fmt.Errorf("rate must be positive, got %f", r)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = r
	return nil
}

func (t *MockTrack) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *MockTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.playing = false
	return nil
}

// Playing reports the transport state the track last saw.
func (t *MockTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Volume returns the last volume set.
func (t *MockTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Rate returns the last rate set.
func (t *MockTrack) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// Advance moves the position forward while playing, clamped to the
// duration.
func (t *MockTrack) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.position += d
	if t.position > t.duration {
		t.position = t.duration
	}
}

// Finish simulates natural completion.
func (t *MockTrack) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended || t.closed {
		return
	}
	t.position = t.duration
	t.playing = false
	t.ended = true
	close(t.done)
}
