// Package lifecycle reports host visibility and shutdown transitions to
// playback sources so they can pause when the host goes hidden and
// release the audio device before the process exits.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
)

// State is the host lifecycle state.
type State int

const (
	// StateVisible means the host is in the foreground.
	StateVisible State = iota
	// StateHidden means the host was backgrounded or suspended.
	StateHidden
	// StateUnloading means the process is shutting down.
	StateUnloading
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	case StateUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// SubscriptionID identifies a subscriber for removal.
type SubscriptionID int

// Monitor fans lifecycle transitions out to subscribers. Terminal hosts
// drive it from signals: SIGTSTP and SIGCONT map to hidden and visible,
// SIGINT and SIGTERM to unloading. Embedding hosts may also report
// transitions directly through Report.
type Monitor struct {
	mu          sync.Mutex
	state       State
	subscribers map[SubscriptionID]func(State)
	nextID      SubscriptionID
	stop        chan struct{}
	started     bool
}

// NewMonitor creates a monitor in the visible state.
func NewMonitor() *Monitor {
	return &Monitor{
		state:       StateVisible,
		subscribers: make(map[SubscriptionID]func(State)),
		stop:        make(chan struct{}),
	}
}

// Start begins watching process signals. Safe to call once.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.watchSignals()
}

func (m *Monitor) watchSignals() {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGCONT)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-m.stop:
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGTSTP:
				m.Report(StateHidden)
			case syscall.SIGCONT:
				m.Report(StateVisible)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Debug("shutdown signal received", "signal", sig)
				m.Report(StateUnloading)
				return
			}
		}
	}
}

// Report records a transition and notifies subscribers. Unloading is
// terminal; later transitions are ignored.
func (m *Monitor) Report(s State) {
	m.mu.Lock()
	if m.state == StateUnloading || m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s

	fns := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every subsequent transition.
func (m *Monitor) Subscribe(fn func(State)) SubscriptionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subscribers[id] = fn
	return id
}

// Unsubscribe removes a subscriber.
func (m *Monitor) Unsubscribe(id SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, id)
}

// Close stops signal watching. Subscribers are kept so a final
// unloading report can still reach them.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

var (
	shared     *Monitor
	sharedOnce sync.Once
)

// Shared returns the process-wide monitor, starting it on first use.
func Shared() *Monitor {
	sharedOnce.Do(func() {
		shared = NewMonitor()
		shared.Start()
	})
	return shared
}
