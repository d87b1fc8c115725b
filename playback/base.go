package playback

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// base carries the state and event plumbing shared by both source kinds.
// Concrete sources embed it and hold its mutex around backend operations
// so state transitions and backend calls stay atomic.
type base struct {
	mu sync.Mutex

	id   string
	typ  SourceType
	meta Metadata
	cfg  Config

	emitter *Emitter
	logger  *log.Logger

	initialized bool
	loading     bool
	disposed    bool

	phase    Phase
	duration time.Duration
	position time.Duration
	volume   float64
	rate     float64

	progressCancel context.CancelFunc
	lastProgress   time.Duration
}

func newBase(typ SourceType, meta Metadata, cfg Config) base {
	return base{
		id:      meta.ID,
		typ:     typ,
		meta:    meta,
		cfg:     cfg,
		emitter: NewEmitter(),
		logger:  log.WithPrefix("playback." + string(typ)),
		volume:  cfg.DefaultVolume,
		rate:    cfg.DefaultRate,
	}
}

func (b *base) ID() string         { return b.id }
func (b *base) Type() SourceType   { return b.typ }
func (b *base) Metadata() Metadata { return b.meta }

// State returns a snapshot under the lock.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *base) stateLocked() State {
	s := State{
		Initialized: b.initialized,
		Loading:     b.loading,
		Duration:    b.duration,
		CurrentTime: b.position,
		Volume:      b.volume,
		Rate:        b.rate,
	}
	switch b.phase {
	case PhasePlaying:
		s.Playing = true
	case PhasePaused:
		s.Paused = true
	default:
		s.Stopped = true
	}
	if b.duration > 0 {
		s.Progress = float64(b.position) / float64(b.duration)
		if s.Progress > 1 {
			s.Progress = 1
		}
	}
	return s
}

func (b *base) AddListener(t EventType, fn Listener) ListenerID {
	return b.emitter.AddListener(t, fn)
}

func (b *base) RemoveListener(t EventType, id ListenerID) {
	b.emitter.RemoveListener(t, id)
}

// setPhaseLocked enforces the tri-state invariant: entering one phase
// leaves the other two.
func (b *base) setPhaseLocked(p Phase) {
	b.phase = p
	if p == PhaseStopped {
		b.stopProgressLoopLocked()
	}
}

func (b *base) setPositionLocked(t time.Duration) {
	b.position = clampPosition(t, b.duration)
}

func (b *base) setVolumeLocked(v float64) float64 {
	b.volume = clampVolume(v)
	return b.volume
}

// emit fires ev stamped with the source identity. Callers must not hold
// the mutex; listeners may call back into the source.
func (b *base) emit(t EventType) {
	b.emitter.Emit(Event{Type: t, SourceID: b.id})
}

func (b *base) emitError(err *Error) {
	b.logger.Error("playback error",
		"code", err.Code,
		"err", err.Message,
		"cause", err.Cause)
	b.emitter.Emit(Event{Type: EventError, SourceID: b.id, Err: err})
}

func (b *base) emitProgress(position, duration time.Duration) {
	var progress float64
	if duration > 0 {
		progress = float64(position) / float64(duration)
		if progress > 1 {
			progress = 1
		}
	}
	b.emitter.Emit(Event{
		Type:        EventProgress,
		SourceID:    b.id,
		CurrentTime: position,
		Duration:    duration,
		Progress:    progress,
	})
}

// startProgressLoopLocked runs a ticker goroutine that polls pos and
// emits progress events while the source stays in the playing phase.
// The goroutine exits as soon as the phase leaves playing; Resume
// starts a fresh loop. Emission is throttled to material position
// changes so idle ticks do not spam listeners.
func (b *base) startProgressLoopLocked(pos func() time.Duration) {
	b.stopProgressLoopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	b.progressCancel = cancel
	b.lastProgress = -1

	interval := b.cfg.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			b.mu.Lock()
			if b.phase != PhasePlaying {
				b.mu.Unlock()
				return
			}
			p := pos()
			b.setPositionLocked(p)
			current, total := b.position, b.duration
			changed := current != b.lastProgress
			if changed {
				b.lastProgress = current
			}
			b.mu.Unlock()

			if changed {
				b.emitProgress(current, total)
			}
		}
	}()
}

func (b *base) stopProgressLoopLocked() {
	if b.progressCancel != nil {
		b.progressCancel()
		b.progressCancel = nil
	}
}
