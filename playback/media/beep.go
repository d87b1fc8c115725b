package media

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/BumpyClock/digests-audio/internal/audio"
)

// BeepBackend decodes with the beep codecs and plays on the shared
// device.
type BeepBackend struct {
	ctx audio.Context
}

// NewBeepBackend creates a backend on ctx.
func NewBeepBackend(ctx audio.Context) *BeepBackend {
	return &BeepBackend{ctx: ctx}
}

// readSeekCloser adapts an in-memory reader to the decoder input
// contract while preserving seekability.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// Open decodes data and prepares a paused track at position zero.
func (b *BeepBackend) Open(data []byte, format string) (Track, error) {
	rc := readSeekCloser{bytes.NewReader(data)}

	var (
		src beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch format {
	case FormatMP3:
		src, f, err = mp3.Decode(rc)
	case FormatWAV:
		src, f, err = wav.Decode(rc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}

	// One resampler covers both device rate conversion and the playback
	// rate multiplier.
	baseRatio := float64(f.SampleRate) / float64(b.ctx.SampleRate())
	resampler := beep.ResampleRatio(4, baseRatio, src)
	reader := newStreamReader(resampler)

	player, err := b.ctx.NewPlayer(reader)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating device player: %w", err)
	}

	t := &beepTrack{
		ctx:       b.ctx,
		src:       src,
		format:    f,
		resampler: resampler,
		reader:    reader,
		player:    player,
		baseRatio: baseRatio,
		rate:      1.0,
		volume:    1.0,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
	go t.watchEnd()
	return t, nil
}

type beepTrack struct {
	ctx    audio.Context
	format beep.Format

	mu        sync.Mutex
	src       beep.StreamSeekCloser
	resampler *beep.Resampler
	reader    *streamReader
	player    audio.Player
	baseRatio float64
	rate      float64
	volume    float64
	playing   bool
	closed    bool
	ended     bool
	done      chan struct{}
	stop      chan struct{}
}

func (t *beepTrack) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format.SampleRate.D(t.src.Len())
}

// Position derives the audible position from source samples consumed
// minus audio still sitting in the device buffer, mapped back through
// the current resampling ratio.
func (t *beepTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *beepTrack) positionLocked() time.Duration {
	consumed := t.src.Position()

	unplayedFrames := t.player.UnplayedBufferSize() / audio.BytesPerFrame
	unheardSrc := int(float64(unplayedFrames) * t.baseRatio * t.rate)

	pos := consumed - unheardSrc
	if pos < 0 {
		pos = 0
	}
	return t.format.SampleRate.D(pos)
}

func (t *beepTrack) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.playing = true
	t.player.Play()
}

func (t *beepTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.playing = false
	t.player.Pause()
}

// Seek rebuilds the device player at the target sample. Recreating the
// player discards its buffered audio, which a reader-side seek could
// not.
func (t *beepTrack) Seek(target time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("track is closed")
	}

	sample := t.format.SampleRate.N(target)
	if sample < 0 {
		sample = 0
	}
	if total := t.src.Len(); sample > total {
		sample = total
	}
	if err := t.src.Seek(sample); err != nil {
		return fmt.Errorf("seeking source: %w", err)
	}
	t.reader.reset()

	// A track that already ended comes back to life after a rewind.
	if t.ended {
		t.ended = false
		t.done = make(chan struct{})
	}

	t.player.Pause()
	t.player.Close()

	player, err := t.ctx.NewPlayer(t.reader)
	if err != nil {
		t.closed = true
		return fmt.Errorf("recreating device player: %w", err)
	}
	player.SetVolume(t.volume)
	t.player = player
	if t.playing {
		player.Play()
	}
	return nil
}

func (t *beepTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
	if !t.closed {
		t.player.SetVolume(v)
	}
}

func (t *beepTrack) SetRate(r float64) error {
	if r <= 0 {
		return fmt.Errorf("rate must be positive, got %f", r)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = r
	t.resampler.SetRatio(t.baseRatio * r)
	return nil
}

// Done returns the completion channel for the current pass through the
// track. A backwards seek after completion installs a fresh channel.
func (t *beepTrack) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *beepTrack) watchEnd() {
	ticker := time.NewTicker(15 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if !t.closed && !t.ended && t.reader.Exhausted() && t.player.UnplayedBufferSize() == 0 {
			t.ended = true
			t.playing = false
			close(t.done)
		}
		t.mu.Unlock()
	}
}

func (t *beepTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.stop)
	t.player.Pause()
	t.player.Close()
	return t.src.Close()
}
