package playback

import "time"

// Metadata describes one playable unit. It is attached to a source at
// construction and never mutated afterwards.
type Metadata struct {
	// ID uniquely identifies the playable unit.
	ID string

	// Title is the display title.
	Title string

	// Source is a human-readable origin label, e.g. the feed name.
	Source string

	// Thumbnail is an artwork image URL.
	Thumbnail string

	// Duration is an optional duration hint. Zero means unknown.
	Duration time.Duration
}
