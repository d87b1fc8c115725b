package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// EventType names a playback event.
type EventType string

const (
	// EventPlay fires when playback starts from a stopped state.
	EventPlay EventType = "play"

	// EventPause fires when playback is paused.
	EventPause EventType = "pause"

	// EventResume fires when playback continues from a pause.
	EventResume EventType = "resume"

	// EventStop fires when playback is halted and rewound.
	EventStop EventType = "stop"

	// EventEnd fires on natural completion.
	EventEnd EventType = "end"

	// EventProgress fires while playing, throttled to material position
	// changes. Carries CurrentTime, Duration and Progress.
	EventProgress EventType = "progress"

	// EventLoading fires when content preparation begins.
	EventLoading EventType = "loading"

	// EventLoaded fires when content preparation completes.
	EventLoaded EventType = "loaded"

	// EventRateChange fires when the playback rate changes.
	EventRateChange EventType = "ratechange"

	// EventVolumeChange fires when the volume changes.
	EventVolumeChange EventType = "volumechange"

	// EventError fires on any runtime failure. Carries Err.
	EventError EventType = "error"
)

// Event is the payload delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	SourceID  string

	// Progress fields, set on EventProgress.
	CurrentTime time.Duration
	Duration    time.Duration
	Progress    float64

	// Err is set on EventError.
	Err *Error
}

// Listener receives events. Panics inside a listener are recovered and
// logged so one broken subscriber cannot break others or the source.
type Listener func(Event)

// ListenerID identifies a registered listener for removal.
type ListenerID int

// Emitter fans events out to per-type listener sets.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[EventType]map[ListenerID]Listener
	nextID    ListenerID
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[EventType]map[ListenerID]Listener),
	}
}

// AddListener registers fn for events of type t.
func (e *Emitter) AddListener(t EventType, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	set, ok := e.listeners[t]
	if !ok {
		set = make(map[ListenerID]Listener)
		e.listeners[t] = set
	}
	set[id] = fn
	return id
}

// RemoveListener removes the listener registered under id for type t.
func (e *Emitter) RemoveListener(t EventType, id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if set, ok := e.listeners[t]; ok {
		delete(set, id)
	}
}

// RemoveAll drops every registered listener.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[EventType]map[ListenerID]Listener)
}

// ListenerCount returns the number of listeners registered for type t.
func (e *Emitter) ListenerCount(t EventType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[t])
}

// Emit delivers ev to every listener registered for its type.
func (e *Emitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	e.mu.RLock()
	set := e.listeners[ev.Type]
	fns := make([]Listener, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		e.dispatch(fn, ev)
	}
}

func (e *Emitter) dispatch(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("playback event listener panicked",
				"event", ev.Type,
				"source", ev.SourceID,
				"panic", r)
		}
	}()
	fn(ev)
}
