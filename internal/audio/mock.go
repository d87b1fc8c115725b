package audio

import (
	"io"
	"sync"
)

// MockContext is a silent Context for tests and headless environments.
// Players drain their readers without touching any device.
type MockContext struct {
	mu      sync.Mutex
	players []*MockPlayer
	closed  bool
}

// NewMockContext creates a silent audio context.
func NewMockContext() *MockContext {
	return &MockContext{}
}

func (c *MockContext) NewPlayer(r io.Reader) (Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &MockPlayer{r: r, volume: 1.0}
	c.players = append(c.players, p)
	return p, nil
}

func (c *MockContext) SampleRate() int   { return SampleRate }
func (c *MockContext) ChannelCount() int { return Channels }

func (c *MockContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Players returns every player created on this context.
func (c *MockContext) Players() []*MockPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*MockPlayer, len(c.players))
	copy(out, c.players)
	return out
}

// MockPlayer consumes its reader on demand instead of in real time.
// Tests call Drain to simulate playback advancing.
type MockPlayer struct {
	mu      sync.Mutex
	r       io.Reader
	playing bool
	closed  bool
	volume  float64
	drained int64
}

func (p *MockPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.playing = true
	}
}

func (p *MockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *MockPlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

// Volume returns the last volume set.
func (p *MockPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *MockPlayer) UnplayedBufferSize() int64 { return 0 }

func (p *MockPlayer) Seek(offset int64, whence int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.r.(io.Seeker); ok {
		return s.Seek(offset, whence)
	}
	return 0, io.ErrUnexpectedEOF
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

// Drain consumes up to n bytes from the reader, simulating the device
// playing that much audio. It returns the bytes consumed; 0 at EOF.
func (p *MockPlayer) Drain(n int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	consumed, _ := io.CopyN(io.Discard, p.r, n)
	p.drained += consumed
	return consumed
}

// DrainAll consumes the remaining audio.
func (p *MockPlayer) DrainAll() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	consumed, _ := io.Copy(io.Discard, p.r)
	p.drained += consumed
	return consumed
}
