package playback

import (
	"context"
	"strings"
	"time"

	"github.com/BumpyClock/digests-audio/internal/audio"
	"github.com/BumpyClock/digests-audio/internal/audiocache"
	"github.com/BumpyClock/digests-audio/internal/lifecycle"
	"github.com/BumpyClock/digests-audio/playback/speech"
)

// SpeechSource reads article text aloud through a synthesis engine.
// The text is split into sentence chunks placed on an estimated
// timeline; synthesis happens chunk by chunk during playback, with
// results cached so seeking back or resuming stale pauses does not
// re-synthesize.
type SpeechSource struct {
	base

	text    string
	chunker *speech.Chunker

	// baseChunks holds the rate-1.0 estimates; chunks is the same table
	// rescaled to the current rate so positions line up with the
	// rate-scaled audio the engine produces.
	baseChunks []speech.Chunk
	chunks     []speech.Chunk

	// Injection points, defaulted during Initialize. The sink itself is
	// acquired lazily on the first Play so a busy device surfaces as a
	// recoverable playback error rather than failing setup.
	synth    speech.Synthesizer
	sink     AudioSink
	openSink func() (AudioSink, error)
	cache    *audiocache.Cache
	monitor  *lifecycle.Monitor

	voice  speech.Voice
	loaded bool

	// chunkIndex is the chunk currently playing or next to play;
	// chunkBase is the offset inside that chunk where the current
	// synthesis run began, nonzero after a stale-pause resume.
	chunkIndex int
	chunkBase  time.Duration

	pausedAt time.Time

	session     *playSession
	lifecycleID lifecycle.SubscriptionID
	subscribed  bool
}

// playSession is one run of the chunk loop. Any restart (seek, rate
// change, stale resume) cancels the old session and starts a new one.
type playSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSpeechSource creates a speech source for text. The source does
// nothing until Initialize.
func NewSpeechSource(meta Metadata, text string, cfg Config) (*SpeechSource, error) {
	if text == "" {
		return nil, NewError(ErrorCodeInvalidInput, "text content is empty", ErrNoContent)
	}
	return &SpeechSource{
		base:    newBase(TypeSpeech, meta, cfg),
		text:    text,
		chunker: speech.NewChunker(cfg.WordsPerMinute),
	}, nil
}

// SetSynthesizer installs a specific engine before Initialize.
func (s *SpeechSource) SetSynthesizer(synth speech.Synthesizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth = synth
}

// Initialize checks the synthesis engine and acquires the audio
// device. Idempotent; failure emits one error event and reports false.
func (s *SpeechSource) Initialize(ctx context.Context) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	if s.initialized {
		s.mu.Unlock()
		return true
	}
	synth := s.synth
	s.mu.Unlock()

	if synth == nil {
		s.emitError(NewError(ErrorCodeNotSupported, "no speech engine configured", nil))
		return false
	}
	if !synth.Available(ctx) {
		s.emitError(NewError(ErrorCodeEnvironment, "speech engine unavailable", speech.ErrEngineUnavailable))
		return false
	}

	s.mu.Lock()
	if s.openSink == nil {
		s.openSink = func() (AudioSink, error) {
			deviceCtx, err := audio.Shared()
			if err != nil {
				return nil, err
			}
			return newDeviceSink(deviceCtx), nil
		}
	}
	if s.cache == nil {
		s.cache = audiocache.New(s.cfg.CacheCapacity)
	}
	if s.monitor == nil {
		s.monitor = lifecycle.Shared()
	}
	s.mu.Unlock()

	// Voice enumeration is bounded: a slow engine must not block setup.
	voices := speech.ListVoices(ctx, synth, s.cfg.VoiceTimeout)
	if v, ok := speech.SelectVoice(voices, s.cfg.Language); ok {
		s.mu.Lock()
		s.voice = v
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.subscribeLifecycle()
	return true
}

func (s *SpeechSource) subscribeLifecycle() {
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

// Load chunks the text and computes the estimated duration. Cheap and
// synchronous; no synthesis happens here.
func (s *SpeechSource) Load(ctx context.Context, opts *LoadOptions) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	s.emit(EventLoading)

	chunks := s.chunker.Chunk(s.text)

	s.mu.Lock()
	s.baseChunks = chunks
	s.chunks = speech.Rescale(chunks, s.rate)
	s.duration = speech.TotalDuration(s.chunks)
	s.loaded = true
	s.loading = false
	s.mu.Unlock()

	s.emit(EventLoaded)
	return nil
}

// Play starts reading, initializing and loading first as needed. From
// paused it behaves like Resume; otherwise it starts at the chunk
// containing the requested start time.
func (s *SpeechSource) Play(ctx context.Context, opts *PlayOptions) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	paused := s.phase == PhasePaused
	s.mu.Unlock()

	if paused && (opts == nil || opts.StartTime == 0) {
		return s.Resume()
	}

	if !s.Initialize(ctx) {
		return nil
	}
	if err := s.Load(ctx, nil); err != nil {
		return err
	}
	if !s.ensureSink() {
		return nil
	}

	s.mu.Lock()
	if len(s.chunks) == 0 {
		s.mu.Unlock()
		s.emitError(NewError(ErrorCodeSpeech, "no speakable content", nil))
		return nil
	}

	start := 0
	if opts != nil && opts.StartTime > 0 {
		start = speech.ChunkAt(s.chunks, opts.StartTime)
	}
	s.startSessionLocked(start, 0)
	s.setPhaseLocked(PhasePlaying)
	s.startProgressLoopLocked(s.positionNow)
	s.mu.Unlock()

	s.emit(EventPlay)
	return nil
}

// ensureSink acquires the audio device on first playback. Failure is
// the autoplay-rejection analog: a recoverable error event asking for
// another attempt, not a broken source.
func (s *SpeechSource) ensureSink() bool {
	s.mu.Lock()
	if s.sink != nil {
		s.mu.Unlock()
		return true
	}
	open := s.openSink
	s.mu.Unlock()

	sink, err := open()
	if err != nil {
		s.emitError(NewError(ErrorCodeUserInteractionRequired, "acquiring audio device", err))
		return false
	}

	s.mu.Lock()
	s.sink = sink
	sink.SetVolume(s.volume)
	s.mu.Unlock()
	return true
}

// startSessionLocked cancels any running session and starts the chunk
// loop at chunk index from, offset base into that chunk.
func (s *SpeechSource) startSessionLocked(from int, base time.Duration) {
	if s.session != nil {
		s.session.cancel()
	}
	s.sink.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sess := &playSession{ctx: ctx, cancel: cancel}
	s.session = sess

	s.chunkIndex = from
	s.chunkBase = base
	s.position = s.chunks[from].Offset + base

	go s.playLoop(sess, from, base)
}

// playLoop synthesizes and plays chunks in order until the session is
// cancelled or the text ends.
func (s *SpeechSource) playLoop(sess *playSession, from int, base time.Duration) {
	s.mu.Lock()
	chunks := s.chunks
	rate := s.rate
	s.mu.Unlock()

	for i := from; i < len(chunks); i++ {
		if sess.ctx.Err() != nil {
			return
		}

		chunk := chunks[i]
		text := chunk.Text
		if i == from && base > 0 {
			text = trimSpoken(text, base, chunk.Duration)
		}

		aud, err := s.synthesize(sess.ctx, text, rate)
		if err != nil {
			if sess.ctx.Err() != nil {
				return
			}
			s.handleSpeechError(sess, err)
			return
		}

		s.mu.Lock()
		if sess.ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.chunkIndex = i
		if i != from {
			s.chunkBase = 0
		}
		s.position = chunks[i].Offset + s.chunkBase
		done, err := s.sink.Play(aud.PCM, aud.SampleRate, aud.Channels)
		s.mu.Unlock()

		if err != nil {
			if sess.ctx.Err() != nil {
				return
			}
			s.handleSpeechError(sess, err)
			return
		}

		select {
		case <-sess.ctx.Done():
			return
		case <-done:
		}
	}

	// Natural end of the text.
	s.mu.Lock()
	if sess.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.session = nil
	s.position = s.duration
	s.chunkIndex = 0
	s.chunkBase = 0
	s.setPhaseLocked(PhaseStopped)
	current, total := s.position, s.duration
	s.mu.Unlock()

	s.emitProgress(current, total)
	s.emit(EventEnd)
}

// synthesize produces audio for text, consulting the cache first.
func (s *SpeechSource) synthesize(ctx context.Context, text string, rate float64) (speech.Audio, error) {
	s.mu.Lock()
	cache := s.cache
	voice := s.voice
	synth := s.synth
	s.mu.Unlock()

	key := audiocache.Key(synth.Name(), voice.ID, rate, text)
	if entry, ok := cache.Get(key); ok {
		return speech.Audio{PCM: entry.PCM, SampleRate: entry.SampleRate, Channels: entry.Channels}, nil
	}

	aud, err := synth.Synthesize(ctx, speech.Request{Text: text, Voice: voice, Rate: rate})
	if err != nil {
		return speech.Audio{}, err
	}

	cache.Put(key, audiocache.Entry{
		PCM:        aud.PCM,
		SampleRate: aud.SampleRate,
		Channels:   aud.Channels,
		Duration:   audio.Duration(aud.PCM, audio.Format{SampleRate: aud.SampleRate, Channels: aud.Channels}),
	})
	return aud, nil
}

// handleSpeechError resets the source to stopped and reports a
// recoverable speech failure; the next Play starts over.
func (s *SpeechSource) handleSpeechError(sess *playSession, err error) {
	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.sink.Stop()
	s.position = 0
	s.chunkIndex = 0
	s.chunkBase = 0
	s.setPhaseLocked(PhaseStopped)
	s.mu.Unlock()

	s.emitError(NewError(ErrorCodeSpeech, "speech synthesis failed", err))
}

// trimSpoken drops the words of text that fall before offset on the
// chunk's timeline, so a stale resume picks up mid-sentence.
func trimSpoken(text string, offset, total time.Duration) string {
	if total <= 0 || offset <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	skip := int(float64(len(words)) * (float64(offset) / float64(total)))
	if skip >= len(words) {
		skip = len(words) - 1
	}
	return strings.Join(words[skip:], " ")
}

// positionNow computes the live position: the chunk's timeline offset
// plus audible progress within the current synthesis run, clamped to
// the chunk's estimated span.
func (s *SpeechSource) positionNow() time.Duration {
	// Callers hold s.mu via the progress loop.
	if s.chunkIndex >= len(s.chunks) {
		return s.position
	}
	chunk := s.chunks[s.chunkIndex]
	within := s.chunkBase + s.sink.Position()
	if within > chunk.Duration {
		within = chunk.Duration
	}
	return chunk.Offset + within
}

// Pause freezes playback, remembering when for the stale-pause check.
func (s *SpeechSource) Pause() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return nil
	}
	s.sink.Pause()
	s.position = s.positionNow()
	if s.chunkIndex < len(s.chunks) {
		s.chunkBase = s.position - s.chunks[s.chunkIndex].Offset
	}
	s.pausedAt = time.Now()
	s.setPhaseLocked(PhasePaused)
	s.mu.Unlock()

	s.emit(EventPause)
	return nil
}

// Resume continues after a pause. A short pause resumes the buffered
// audio in place; past the stale threshold the buffered audio no
// longer matches the engine state, so the current chunk is
// re-synthesized from the paused position.
func (s *SpeechSource) Resume() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.phase != PhasePaused {
		s.mu.Unlock()
		return nil
	}

	stale := time.Since(s.pausedAt) > s.cfg.StalePauseThreshold
	if stale {
		s.startSessionLocked(s.chunkIndex, s.chunkBase)
	} else {
		s.sink.Resume()
	}
	s.setPhaseLocked(PhasePlaying)
	s.startProgressLoopLocked(s.positionNow)
	s.mu.Unlock()

	s.emit(EventResume)
	return nil
}

// Stop halts playback and rewinds to the start.
func (s *SpeechSource) Stop() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.session != nil {
		s.session.cancel()
		s.session = nil
	}
	if s.sink != nil {
		s.sink.Stop()
	}
	wasStopped := s.phase == PhaseStopped
	s.position = 0
	s.chunkIndex = 0
	s.chunkBase = 0
	s.setPhaseLocked(PhaseStopped)
	s.mu.Unlock()

	if !wasStopped {
		s.emit(EventStop)
	}
	return nil
}

// Seek moves to the chunk containing t; speech positions snap to chunk
// boundaries.
func (s *SpeechSource) Seek(t time.Duration) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if len(s.chunks) == 0 {
		s.position = 0
		s.mu.Unlock()
		return nil
	}

	idx := speech.ChunkAt(s.chunks, clampPosition(t, s.duration))
	playing := s.phase == PhasePlaying
	if playing {
		s.startSessionLocked(idx, 0)
	} else {
		if s.session != nil {
			s.session.cancel()
			s.session = nil
		}
		if s.sink != nil {
			s.sink.Stop()
		}
		s.chunkIndex = idx
		s.chunkBase = 0
		s.position = s.chunks[idx].Offset
		// A paused position from before the seek is stale by
		// definition.
		s.pausedAt = time.Time{}
	}
	current, total := s.position, s.duration
	s.mu.Unlock()

	s.emitProgress(current, total)
	return nil
}

// SetVolume sets output volume, clamped to [0, 1].
func (s *SpeechSource) SetVolume(v float64) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	clamped := s.setVolumeLocked(v)
	if s.sink != nil {
		s.sink.SetVolume(clamped)
	}
	s.mu.Unlock()

	s.emit(EventVolumeChange)
	return nil
}

// SetRate changes the speaking rate and re-estimates the timeline:
// faster speech shortens every chunk, so duration, offsets and
// progress all shrink with it. Synthesized audio embeds its rate, so
// while playing the current chunk restarts from its boundary at the
// new rate.
func (s *SpeechSource) SetRate(r float64) error {
	if r <= 0 {
		return NewError(ErrorCodeInvalidInput, "rate must be positive", nil)
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	old := s.rate
	s.rate = r
	if len(s.baseChunks) > 0 {
		s.chunks = speech.Rescale(s.baseChunks, r)
		s.duration = speech.TotalDuration(s.chunks)
		if s.chunkIndex < len(s.chunks) {
			// A mid-chunk offset scales with the rate change so the
			// position keeps pointing at the same words.
			s.chunkBase = time.Duration(float64(s.chunkBase) * old / r)
			s.position = s.chunks[s.chunkIndex].Offset + s.chunkBase
		}
	}
	if s.phase == PhasePlaying {
		s.startSessionLocked(s.chunkIndex, 0)
	}
	s.mu.Unlock()

	s.emit(EventRateChange)
	return nil
}

// Dispose releases the sink, listeners and lifecycle subscription.
// Terminal and idempotent.
func (s *SpeechSource) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	if s.session != nil {
		s.session.cancel()
		s.session = nil
	}
	s.stopProgressLoopLocked()
	if s.sink != nil {
		_ = s.sink.Close()
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
	if s.synth != nil {
		_ = s.synth.Close()
	}
	s.emitter.RemoveAll()
	return nil
}
