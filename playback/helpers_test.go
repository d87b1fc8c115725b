package playback

import (
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// eventRecorder captures every event a source emits.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

var allEventTypes = []EventType{
	EventPlay, EventPause, EventResume, EventStop, EventEnd,
	EventProgress, EventLoading, EventLoaded,
	EventRateChange, EventVolumeChange, EventError,
}

func recordEvents(src Source) *eventRecorder {
	r := &eventRecorder{}
	for _, t := range allEventTypes {
		src.AddListener(t, func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		})
	}
	return r
}

func (r *eventRecorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// requireTriState fails unless exactly one transport flag is set.
func requireTriState(t *testing.T, st State) {
	t.Helper()
	set := 0
	for _, b := range []bool{st.Playing, st.Paused, st.Stopped} {
		if b {
			set++
		}
	}
	if set != 1 {
		t.Fatalf("tri-state violated: playing=%v paused=%v stopped=%v",
			st.Playing, st.Paused, st.Stopped)
	}
}
