package playback

import "time"

// Phase is the tri-state transport position of a source. Exactly one of
// playing, paused or stopped holds at any instant.
type Phase int

const (
	// PhaseStopped means no playback is in progress.
	PhaseStopped Phase = iota
	// PhasePlaying means audio is audible.
	PhasePlaying
	// PhasePaused means playback is frozen at the current position.
	PhasePaused
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a source's playback state.
type State struct {
	// Initialized reports whether Initialize completed successfully.
	Initialized bool

	// Loading reports whether content preparation is in progress. It is
	// tracked independently of the transport phase.
	Loading bool

	// Playing, Paused and Stopped reflect the tri-state transport
	// position; exactly one is true.
	Playing bool
	Paused  bool
	Stopped bool

	// Duration is the total content duration. For speech sources this is
	// an estimate.
	Duration time.Duration

	// CurrentTime is the elapsed position, clamped to [0, Duration].
	CurrentTime time.Duration

	// Progress is CurrentTime/Duration in [0, 1], 0 when Duration is 0.
	Progress float64

	// Volume is the output volume in [0, 1].
	Volume float64

	// Rate is the playback rate multiplier.
	Rate float64
}

// Phase returns the tri-state phase encoded by the snapshot booleans.
func (s State) Phase() Phase {
	switch {
	case s.Playing:
		return PhasePlaying
	case s.Paused:
		return PhasePaused
	default:
		return PhaseStopped
	}
}

// clampVolume forces v into [0, 1].
func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampPosition forces t into [0, d]. A zero duration only clamps the
// lower bound, since the duration may simply be unknown yet.
func clampPosition(t, d time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if d > 0 && t > d {
		return d
	}
	return t
}
