package audio

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Sink plays one utterance of raw PCM at a time on the shared device.
// Play converts the input to device format, starts output and returns a
// channel closed when the audio has fully drained. The sink tracks the
// audible position exactly from bytes consumed minus bytes still
// buffered in the device.
type Sink struct {
	ctx Context

	mu      sync.Mutex
	player  Player
	src     *countingReader
	total   int64
	volume  float64
	stopped chan struct{}
}

// NewSink creates a sink on ctx.
func NewSink(ctx Context) *Sink {
	return &Sink{ctx: ctx, volume: 1.0}
}

// Play stops any current utterance, converts pcm from f to device
// format and starts playing it. The returned channel closes when the
// utterance drains completely; it stays open if playback is stopped
// early.
func (s *Sink) Play(pcm []byte, f Format) (<-chan struct{}, error) {
	converted, err := ToDeviceFormat(pcm, f)
	if err != nil {
		return nil, fmt.Errorf("converting PCM: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	src := newCountingReader(converted)
	player, err := s.ctx.NewPlayer(src)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	player.SetVolume(s.volume)

	s.player = player
	s.src = src
	s.total = int64(len(converted))
	s.stopped = make(chan struct{})

	done := make(chan struct{})
	go s.watchDrain(player, src, s.total, s.stopped, done)

	player.Play()
	return done, nil
}

// watchDrain closes done once every byte has been consumed from the
// source and drained out of the device buffer.
func (s *Sink) watchDrain(player Player, src *countingReader, total int64, stopped, done chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stopped:
			return
		case <-ticker.C:
		}

		if src.Consumed() >= total && player.UnplayedBufferSize() == 0 {
			close(done)
			return
		}
	}
}

// Pause suspends output, keeping the device buffer intact.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
}

// Resume continues output after Pause.
func (s *Sink) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Play()
	}
}

// Stop discards the current utterance. The done channel from the
// corresponding Play never closes.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sink) stopLocked() {
	if s.stopped != nil {
		close(s.stopped)
		s.stopped = nil
	}
	if s.player != nil {
		s.player.Pause()
		s.player.Close()
		s.player = nil
	}
	s.src = nil
	s.total = 0
}

// Position returns the audible position within the current utterance.
func (s *Sink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || s.src == nil {
		return 0
	}

	audible := s.src.Consumed() - s.player.UnplayedBufferSize()
	if audible < 0 {
		audible = 0
	}
	return FrameDuration(audible)
}

// SetVolume sets the output volume for the current and future
// utterances.
func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = v
	if s.player != nil {
		s.player.SetVolume(v)
	}
}

// Playing reports whether the device is actively consuming audio.
func (s *Sink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil && s.player.IsPlaying()
}

// Close stops playback and releases the sink. The shared context stays
// open for other consumers.
func (s *Sink) Close() error {
	s.Stop()
	return nil
}

// countingReader tracks bytes consumed by the device under a lock so
// Position can read the count concurrently.
type countingReader struct {
	mu   sync.Mutex
	data []byte
	off  int64
}

func newCountingReader(data []byte) *countingReader {
	return &countingReader{data: data}
}

func (r *countingReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += int64(n)
	return n, nil
}

// Consumed returns the bytes handed to the device so far.
func (r *countingReader) Consumed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.off
}
