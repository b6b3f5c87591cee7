// Package button implements a debounced digital input.
// This package does no I/O beyond reading its pin and never sleeps:
// time is always injected via time.Time parameters.
package button

import (
	"fmt"
	"strings"
	"time"
)

// Polarity selects which stable transition counts as a press.
type Polarity int

const (
	// PullDown is active-high: the line idles low and a press drives it high.
	PullDown Polarity = iota
	// PullUp is active-low: the line idles high and a press pulls it low.
	PullUp
)

func (p Polarity) String() string {
	switch p {
	case PullDown:
		return "pull-down"
	case PullUp:
		return "pull-up"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pull-down", "pulldown", "active-high":
		*p = PullDown
	case "pull-up", "pullup", "active-low":
		*p = PullUp
	default:
		return fmt.Errorf("unknown polarity %q", text)
	}
	return nil
}

// CountMode selects which edges increment the event counter.
type CountMode int

const (
	CountPresses CountMode = iota
	CountReleases
	CountBoth
)

func (m CountMode) String() string {
	switch m {
	case CountPresses:
		return "presses"
	case CountReleases:
		return "releases"
	case CountBoth:
		return "both"
	default:
		return fmt.Sprintf("CountMode(%d)", int(m))
	}
}

// Config holds the per-input settings.
type Config struct {
	Polarity  Polarity
	Debounce  time.Duration
	CountMode CountMode
}
