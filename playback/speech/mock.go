package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockSynthesizer produces silent PCM sized to the text's estimated
// speaking time. It backs the "mock" engine selection and the test
// suite, where real synthesis would need models or network.
type MockSynthesizer struct {
	mu sync.Mutex

	// Delay is added before each synthesis to simulate engine latency.
	Delay time.Duration

	// FailNext makes the next Synthesize call return an error.
	FailNext error

	// WordsPerMinute paces the generated silence. Defaults to 150.
	WordsPerMinute int

	// SampleRate of the generated PCM. Defaults to 22050.
	SampleRate int

	// VoiceList returned by Voices. Defaults to one local English voice.
	VoiceList []Voice

	calls  int
	closed bool
}

// NewMockSynthesizer creates a mock engine with defaults.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		WordsPerMinute: 150,
		SampleRate:     22050,
		VoiceList: []Voice{
			{ID: "mock-en", Name: "Mock English", Language: "en-US", Local: true},
		},
	}
}

func (m *MockSynthesizer) Name() string { return "mock" }

func (m *MockSynthesizer) Available(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *MockSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrEngineUnavailable
	}
	out := make([]Voice, len(m.VoiceList))
	copy(out, m.VoiceList)
	return out, nil
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, req Request) (Audio, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Audio{}, ErrEngineUnavailable
	}
	m.calls++
	delay := m.Delay
	failure := m.FailNext
	m.FailNext = nil
	wpm := m.WordsPerMinute
	rate := m.SampleRate
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Audio{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failure != nil {
		return Audio{}, failure
	}
	if strings.TrimSpace(req.Text) == "" {
		return Audio{}, fmt.Errorf("empty synthesis text")
	}

	words := len(strings.Fields(req.Text))
	speechRate := req.Rate
	if speechRate <= 0 {
		speechRate = 1.0
	}
	seconds := float64(words) * 60.0 / (float64(wpm) * speechRate)
	samples := int(seconds * float64(rate))
	if samples < 1 {
		samples = 1
	}

	return Audio{
		PCM:        make([]byte, samples*2),
		SampleRate: rate,
		Channels:   1,
	}, nil
}

// Calls returns how many synthesis requests completed the entry check.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSynthesizer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
