package playback

import (
	"sync"
	"time"
)

// MockSink is an AudioSink for tests. Utterances complete only when
// the test says so, keeping chunk-loop behavior deterministic.
type MockSink struct {
	mu sync.Mutex

	// Auto completes every utterance immediately, letting the chunk
	// loop run to the end without test intervention.
	Auto bool

	// PlayErr makes the next Play fail.
	PlayErr error

	plays    []int
	current  chan struct{}
	position time.Duration
	paused   bool
	stopped  int
	volume   float64
	closed   bool
}

// NewMockSink creates a manual-completion mock sink.
func NewMockSink() *MockSink {
	return &MockSink{volume: 1.0}
}

func (m *MockSink) Play(pcm []byte, sampleRate, channels int) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PlayErr != nil {
		err := m.PlayErr
		m.PlayErr = nil
		return nil, err
	}

	m.plays = append(m.plays, len(pcm))
	m.position = 0
	m.paused = false
	m.current = make(chan struct{})
	if m.Auto {
		close(m.current)
	}
	return m.current, nil
}

func (m *MockSink) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *MockSink) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func (m *MockSink) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	m.current = nil
	m.position = 0
}

func (m *MockSink) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockSink) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CompleteCurrent simulates the current utterance draining.
func (m *MockSink) CompleteCurrent() {
	m.mu.Lock()
	ch := m.current
	m.current = nil
	m.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// SetPosition fakes audible progress within the current utterance.
func (m *MockSink) SetPosition(t time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = t
}

// PlayCount returns how many utterances were started.
func (m *MockSink) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plays)
}

// Paused reports the last pause/resume state.
func (m *MockSink) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// StopCount returns how many times Stop ran.
func (m *MockSink) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Volume returns the last volume set.
func (m *MockSink) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}
