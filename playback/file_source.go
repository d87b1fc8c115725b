package playback

import (
	"context"
	"errors"
	"time"

	"github.com/BumpyClock/digests-audio/internal/audio"
	"github.com/BumpyClock/digests-audio/internal/lifecycle"
	"github.com/BumpyClock/digests-audio/playback/media"
)

// FileSource plays a streamed audio file. The whole file is fetched on
// load, decoded through the media backend and played on the shared
// device.
type FileSource struct {
	base

	url string

	// Injection points, defaulted during Initialize. The backend itself
	// is acquired lazily on the first Load so a busy device surfaces as
	// a recoverable playback error rather than failing setup.
	backend     media.Backend
	openBackend func() (media.Backend, error)
	fetch       func(ctx context.Context, url string) ([]byte, string, error)
	probe       func(ctx context.Context, url string) (string, error)
	monitor     *lifecycle.Monitor

	track  media.Track
	loaded bool

	lifecycleID lifecycle.SubscriptionID
	subscribed  bool
	endCancel   context.CancelFunc
}

// NewFileSource creates a file source for audioURL. The source does
// nothing until Initialize.
func NewFileSource(meta Metadata, audioURL string, cfg Config) (*FileSource, error) {
	if audioURL == "" {
		return nil, NewError(ErrorCodeInvalidInput, "audio URL is empty", ErrNoContent)
	}
	s := &FileSource{
		base: newBase(TypeFile, meta, cfg),
		url:  audioURL,
	}
	return s, nil
}

// Initialize acquires the audio device and registers lifecycle
// handling. Idempotent; failure emits one error event and reports
// false.
func (s *FileSource) Initialize(ctx context.Context) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	if s.initialized {
		s.mu.Unlock()
		return true
	}

	if s.openBackend == nil {
		s.openBackend = func() (media.Backend, error) {
			deviceCtx, err := audio.Shared()
			if err != nil {
				return nil, err
			}
			return media.NewBeepBackend(deviceCtx), nil
		}
	}
	if s.fetch == nil {
		fetcher := media.NewFetcher(nil)
		s.fetch = fetcher.Fetch
		s.probe = fetcher.Probe
	}
	if s.monitor == nil {
		s.monitor = lifecycle.Shared()
	}

	s.initialized = true
	s.mu.Unlock()

	s.subscribeLifecycle()
	return true
}

func (s *FileSource) subscribeLifecycle() {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return
	}
	s.subscribed = true
	monitor := s.monitor
	s.mu.Unlock()

	s.lifecycleID = monitor.Subscribe(func(st lifecycle.State) {
		switch st {
		case lifecycle.StateHidden:
			if s.cfg.PauseOnHidden && s.State().Playing {
				_ = s.Pause()
			}
		case lifecycle.StateUnloading:
			_ = s.Stop()
			_ = s.Dispose()
		}
	})
}

// Load fetches and decodes the file. Fetch and decode failures surface
// as error events; Load then reports success so the caller can retry
// later with another Play.
func (s *FileSource) Load(ctx context.Context, opts *LoadOptions) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.loaded || s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	s.emit(EventLoading)

	// The header probe is the only bounded wait in the load path: it
	// rejects unsupported formats before the download, but on timeout
	// or transport failure the load proceeds degraded.
	if s.probe != nil && (opts == nil || !opts.SkipMetadataProbe) {
		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.MetadataTimeout)
		_, err := s.probe(probeCtx, s.url)
		cancel()
		if errors.Is(err, media.ErrUnsupportedFormat) {
			s.finishLoad(false)
			s.emitError(NewError(ErrorCodeFormat, "unsupported audio format", err))
			return nil
		}
	}

	if !s.ensureBackend() {
		s.finishLoad(false)
		return nil
	}

	data, format, err := s.fetch(ctx, s.url)
	if err != nil {
		s.finishLoad(false)
		if errors.Is(err, media.ErrUnsupportedFormat) {
			s.emitError(NewError(ErrorCodeFormat, "unsupported audio format", err))
		} else {
			s.emitError(NewError(ErrorCodeNetwork, "fetching audio file", err))
		}
		return nil
	}

	track, err := s.backend.Open(data, format)
	if err != nil {
		s.finishLoad(false)
		s.emitError(NewError(ErrorCodeDecode, "decoding audio file", err))
		return nil
	}

	s.mu.Lock()
	s.track = track
	s.duration = track.Duration()
	s.loaded = true
	s.loading = false
	track.SetVolume(s.volume)
	if s.rate != 1.0 {
		_ = track.SetRate(s.rate)
	}
	s.mu.Unlock()

	s.emit(EventLoaded)
	return nil
}

// ensureBackend acquires the audio device on first load. Failure is
// the autoplay-rejection analog: a recoverable error event asking for
// another attempt, not a broken source.
func (s *FileSource) ensureBackend() bool {
	s.mu.Lock()
	if s.backend != nil {
		s.mu.Unlock()
		return true
	}
	open := s.openBackend
	s.mu.Unlock()

	backend, err := open()
	if err != nil {
		s.emitError(NewError(ErrorCodeUserInteractionRequired, "acquiring audio device", err))
		return false
	}

	s.mu.Lock()
	s.backend = backend
	s.mu.Unlock()
	return true
}

func (s *FileSource) finishLoad(ok bool) {
	s.mu.Lock()
	s.loading = false
	s.loaded = ok
	s.mu.Unlock()
}

// Play starts playback, initializing and loading first as needed. From
// paused it resumes; while playing it restarts at the requested start
// time.
func (s *FileSource) Play(ctx context.Context, opts *PlayOptions) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.mu.Unlock()

	if !s.Initialize(ctx) {
		return nil
	}
	if err := s.Load(ctx, nil); err != nil {
		return err
	}

	s.mu.Lock()
	if s.track == nil {
		// Load failed; the error event already went out.
		s.mu.Unlock()
		return nil
	}

	if opts != nil && opts.StartTime > 0 {
		if err := s.track.Seek(clampPosition(opts.StartTime, s.duration)); err == nil {
			s.setPositionLocked(opts.StartTime)
		}
	}

	wasPaused := s.phase == PhasePaused
	s.track.Play()
	s.setPhaseLocked(PhasePlaying)
	track := s.track
	s.startProgressLoopLocked(track.Position)
	s.mu.Unlock()

	s.watchEnd(track)

	if wasPaused {
		s.emit(EventResume)
	} else {
		s.emit(EventPlay)
	}
	return nil
}

// watchEnd waits for natural completion of the current pass.
func (s *FileSource) watchEnd(track media.Track) {
	s.mu.Lock()
	if s.endCancel != nil {
		s.endCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.endCancel = cancel
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-track.Done():
		}

		s.mu.Lock()
		if s.phase != PhasePlaying {
			s.mu.Unlock()
			return
		}
		s.position = s.duration
		s.setPhaseLocked(PhaseStopped)
		current, total := s.position, s.duration
		s.mu.Unlock()

		s.emitProgress(current, total)
		s.emit(EventEnd)
	}()
}

// Pause freezes playback. A no-op unless playing.
func (s *FileSource) Pause() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return nil
	}
	s.track.Pause()
	s.setPositionLocked(s.track.Position())
	s.setPhaseLocked(PhasePaused)
	s.mu.Unlock()

	s.emit(EventPause)
	return nil
}

// Resume continues from the paused position. A no-op unless paused.
func (s *FileSource) Resume() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.phase != PhasePaused {
		s.mu.Unlock()
		return nil
	}
	s.track.Play()
	s.setPhaseLocked(PhasePlaying)
	track := s.track
	s.startProgressLoopLocked(track.Position)
	s.mu.Unlock()

	s.watchEnd(track)
	s.emit(EventResume)
	return nil
}

// Stop halts playback and rewinds to the start.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.endCancel != nil {
		s.endCancel()
		s.endCancel = nil
	}
	if s.track != nil {
		s.track.Pause()
		_ = s.track.Seek(0)
	}
	wasStopped := s.phase == PhaseStopped
	s.position = 0
	s.setPhaseLocked(PhaseStopped)
	s.mu.Unlock()

	if !wasStopped {
		s.emit(EventStop)
	}
	return nil
}

// Seek moves to t, clamped to [0, duration]. Allowed in any state.
func (s *FileSource) Seek(t time.Duration) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	target := clampPosition(t, s.duration)
	if s.track != nil {
		if err := s.track.Seek(target); err != nil {
			s.mu.Unlock()
			s.emitError(NewError(ErrorCodePlaybackAborted, "seek failed", err))
			return nil
		}
	}
	s.position = target
	current, total := s.position, s.duration
	playing := s.phase == PhasePlaying
	var track media.Track
	if playing {
		track = s.track
	}
	s.mu.Unlock()

	// A seek during playback needs a fresh end watcher: the track may
	// have replaced its completion channel.
	if track != nil {
		s.watchEnd(track)
	}
	s.emitProgress(current, total)
	return nil
}

// SetVolume sets output volume, clamped to [0, 1].
func (s *FileSource) SetVolume(v float64) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	clamped := s.setVolumeLocked(v)
	if s.track != nil {
		s.track.SetVolume(clamped)
	}
	s.mu.Unlock()

	s.emit(EventVolumeChange)
	return nil
}

// SetRate sets the playback rate multiplier. Takes effect immediately
// on the decoded stream.
func (s *FileSource) SetRate(r float64) error {
	if r <= 0 {
		return NewError(ErrorCodeInvalidInput, "rate must be positive", nil)
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.rate = r
	if s.track != nil {
		_ = s.track.SetRate(r)
	}
	s.mu.Unlock()

	s.emit(EventRateChange)
	return nil
}

// Dispose releases the track, listeners and lifecycle subscription.
// Terminal and idempotent.
func (s *FileSource) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	if s.endCancel != nil {
		s.endCancel()
		s.endCancel = nil
	}
	s.stopProgressLoopLocked()
	if s.track != nil {
		_ = s.track.Close()
		s.track = nil
	}
	s.loaded = false
	s.setPhaseLocked(PhaseStopped)
	monitor := s.monitor
	subscribed := s.subscribed
	id := s.lifecycleID
	s.mu.Unlock()

	if subscribed && monitor != nil {
		monitor.Unsubscribe(id)
	}
	s.emitter.RemoveAll()
	return nil
}
