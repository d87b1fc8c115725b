package playback

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// MediaSession is implemented by hosts that surface now-playing
// metadata and transport controls, such as a TUI status bar or a
// desktop integration.
type MediaSession interface {
	// SetNowPlaying publishes the active source's metadata.
	SetNowPlaying(meta Metadata)

	// SetPlaybackState publishes the transport phase.
	SetPlaybackState(phase Phase)

	// SetPosition publishes position, duration and rate.
	SetPosition(position, duration time.Duration, rate float64)

	// Clear removes the session when the source is disposed.
	Clear()
}

// NoopSession is the default host integration.
type NoopSession struct{}

func (NoopSession) SetNowPlaying(Metadata)                            {}
func (NoopSession) SetPlaybackState(Phase)                            {}
func (NoopSession) SetPosition(time.Duration, time.Duration, float64) {}
func (NoopSession) Clear()                                            {}

// SessionBinding forwards a source's events into a media session and
// host transport commands back into the source.
type SessionBinding struct {
	source  Source
	session MediaSession
	ids     []boundListener
}

type boundListener struct {
	t  EventType
	id ListenerID
}

// BindSession attaches session to src until Unbind.
func BindSession(src Source, session MediaSession) *SessionBinding {
	b := &SessionBinding{source: src, session: session}

	session.SetNowPlaying(src.Metadata())
	session.SetPlaybackState(src.State().Phase())

	stateEvents := []EventType{EventPlay, EventPause, EventResume, EventStop, EventEnd}
	for _, t := range stateEvents {
		b.listen(t, func(Event) {
			session.SetPlaybackState(src.State().Phase())
		})
	}
	b.listen(EventProgress, func(ev Event) {
		session.SetPosition(ev.CurrentTime, ev.Duration, src.State().Rate)
	})
	b.listen(EventRateChange, func(Event) {
		st := src.State()
		session.SetPosition(st.CurrentTime, st.Duration, st.Rate)
	})
	return b
}

func (b *SessionBinding) listen(t EventType, fn Listener) {
	id := b.source.AddListener(t, fn)
	b.ids = append(b.ids, boundListener{t: t, id: id})
}

// Play forwards a host play command.
func (b *SessionBinding) Play(ctx context.Context) {
	if err := b.source.Play(ctx, nil); err != nil {
		log.Debug("session play rejected", "err", err)
	}
}

// Pause forwards a host pause command.
func (b *SessionBinding) Pause() {
	if err := b.source.Pause(); err != nil {
		log.Debug("session pause rejected", "err", err)
	}
}

// Seek forwards a host seek command.
func (b *SessionBinding) Seek(t time.Duration) {
	if err := b.source.Seek(t); err != nil {
		log.Debug("session seek rejected", "err", err)
	}
}

// SkipBack seeks 10 seconds back, the conventional podcast step.
func (b *SessionBinding) SkipBack() {
	b.Seek(b.source.State().CurrentTime - 10*time.Second)
}

// SkipForward seeks 30 seconds ahead.
func (b *SessionBinding) SkipForward() {
	b.Seek(b.source.State().CurrentTime + 30*time.Second)
}

// Unbind removes the listeners and clears the session.
func (b *SessionBinding) Unbind() {
	for _, bound := range b.ids {
		b.source.RemoveListener(bound.t, bound.id)
	}
	b.ids = nil
	b.session.Clear()
}
