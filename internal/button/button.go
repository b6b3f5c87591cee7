package button

import (
	"fmt"
	"time"

	"github.com/sweeney/combo-lock/internal/gpio"
)

// Button is a debounced view of a single digital input.
//
// A raw change restarts the debounce window; the change is committed only
// once the line has held the new level for the full window. Edges are
// reported on exactly the tick that commits them.
type Button struct {
	pin       gpio.Input
	polarity  Polarity
	debounce  time.Duration
	countMode CountMode

	raw        bool      // last sample, unfiltered
	flicker    bool      // level the debounce window is timing
	stable     bool      // last committed level
	prevStable bool      // committed level before this tick
	changedAt  time.Time // when flicker last changed
	count      uint64
}

// New creates a Button reading from pin. The pin is sampled once to seed
// the stable state, so no edge is reported for the level found at startup.
func New(pin gpio.Input, cfg Config) (*Button, error) {
	level, err := pin.Value()
	if err != nil {
		return nil, fmt.Errorf("read initial level: %w", err)
	}

	return &Button{
		pin:        pin,
		polarity:   cfg.Polarity,
		debounce:   cfg.Debounce,
		countMode:  cfg.CountMode,
		raw:        level,
		flicker:    level,
		stable:     level,
		prevStable: level,
	}, nil
}

// SetDebounce changes the debounce window. It applies from the next Tick.
func (b *Button) SetDebounce(d time.Duration) {
	b.debounce = d
}

// Debounce returns the current debounce window.
func (b *Button) Debounce() time.Duration {
	return b.debounce
}

// SetCountMode changes which edges are counted.
func (b *Button) SetCountMode(m CountMode) {
	b.countMode = m
}

// Polarity returns the configured polarity.
func (b *Button) Polarity() Polarity {
	return b.polarity
}

// Tick samples the pin and advances the debounce filter.
// On a read error the stable state is left as is and no edge is reported.
func (b *Button) Tick(now time.Time) error {
	b.prevStable = b.stable

	level, err := b.pin.Value()
	if err != nil {
		return fmt.Errorf("read pin: %w", err)
	}
	b.raw = level

	if level != b.flicker {
		b.flicker = level
		b.changedAt = now
	}

	if now.Sub(b.changedAt) < b.debounce {
		return nil
	}

	b.stable = b.flicker
	if b.stable != b.prevStable && b.counts() {
		b.count++
	}
	return nil
}

func (b *Button) counts() bool {
	switch b.countMode {
	case CountBoth:
		return true
	case CountPresses:
		return b.Pressed()
	case CountReleases:
		return b.Released()
	}
	return false
}

// State returns the last committed (debounced) line level.
func (b *Button) State() bool {
	return b.stable
}

// Raw returns the last unfiltered sample. Diagnostic use only.
func (b *Button) Raw() bool {
	return b.raw
}

// IsDown reports whether the button is held, after applying polarity.
func (b *Button) IsDown() bool {
	if b.polarity == PullUp {
		return !b.stable
	}
	return b.stable
}

// Pressed reports whether this tick committed a press.
func (b *Button) Pressed() bool {
	if b.polarity == PullUp {
		return b.prevStable && !b.stable
	}
	return !b.prevStable && b.stable
}

// Released reports whether this tick committed a release.
func (b *Button) Released() bool {
	if b.polarity == PullUp {
		return !b.prevStable && b.stable
	}
	return b.prevStable && !b.stable
}

// Count returns the number of counted edges since creation or ResetCount.
func (b *Button) Count() uint64 {
	return b.count
}

// ResetCount sets the event counter to zero.
func (b *Button) ResetCount() {
	b.count = 0
}
