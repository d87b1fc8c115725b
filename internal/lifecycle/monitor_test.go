package lifecycle

import (
	"sync"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateVisible, "visible"},
		{StateHidden, "hidden"},
		{StateUnloading, "unloading"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestReportNotifiesSubscribers(t *testing.T) {
	m := NewMonitor()

	var mu sync.Mutex
	var seen []State
	m.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	m.Report(StateHidden)
	m.Report(StateVisible)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != StateHidden || seen[1] != StateVisible {
		t.Errorf("Unexpected transitions %v", seen)
	}
	if m.State() != StateVisible {
		t.Errorf("Expected visible, got %s", m.State())
	}
}

func TestReportDeduplicates(t *testing.T) {
	m := NewMonitor()

	calls := 0
	m.Subscribe(func(State) { calls++ })

	m.Report(StateHidden)
	m.Report(StateHidden)

	if calls != 1 {
		t.Errorf("Expected 1 notification, got %d", calls)
	}
}

func TestUnloadingIsTerminal(t *testing.T) {
	m := NewMonitor()

	var last State
	m.Subscribe(func(s State) { last = s })

	m.Report(StateUnloading)
	m.Report(StateVisible)
	m.Report(StateHidden)

	if m.State() != StateUnloading {
		t.Errorf("Expected unloading, got %s", m.State())
	}
	if last != StateUnloading {
		t.Errorf("Expected last notification to be unloading, got %s", last)
	}
}

func TestUnsubscribe(t *testing.T) {
	m := NewMonitor()

	calls := 0
	id := m.Subscribe(func(State) { calls++ })
	m.Unsubscribe(id)

	m.Report(StateHidden)

	if calls != 0 {
		t.Errorf("Expected no notifications after unsubscribe, got %d", calls)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewMonitor()
	m.Close()
	m.Close()

	// Subscribers still receive a final unloading report after Close.
	var last State
	m.Subscribe(func(s State) { last = s })
	m.Report(StateUnloading)
	if last != StateUnloading {
		t.Errorf("Expected unloading report after close, got %s", last)
	}
}
