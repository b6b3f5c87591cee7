package lock

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/combo-lock/internal/button"
	"github.com/sweeney/combo-lock/internal/gpio"
)

type signal int

const (
	accessory signal = iota
	green
	red
	blue
	numSignals
)

var signalNames = [numSignals]string{"accessory", "green", "red", "blue"}

// Lock is the combination lock state machine. It owns the priming button
// and the combo buttons and is driven by calling Tick once per poll.
type Lock struct {
	cfg     Config
	priming *button.Button
	buttons []*button.Button

	out    [numSignals]gpio.Output
	levels [numSignals]bool

	state      State
	input      []int
	entryStart time.Time

	flashing   bool
	toggles    int
	lastToggle time.Time

	halted        bool
	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time

	errs []error // write errors collected during one Tick
}

// New creates a lock in the NotPrimed state.
// The startTime is used for calculating uptime in heartbeat events.
func New(cfg Config, priming *button.Button, buttons []*button.Button, out Outputs, startTime time.Time) (*Lock, error) {
	if err := validate(cfg, priming, buttons, out); err != nil {
		return nil, err
	}

	combo := make([]int, len(cfg.Combo))
	copy(combo, cfg.Combo)
	cfg.Combo = combo

	return &Lock{
		cfg:           cfg,
		priming:       priming,
		buttons:       buttons,
		out:           [numSignals]gpio.Output{out.Accessory, out.Green, out.Red, out.Blue},
		input:         make([]int, 0, len(combo)),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}, nil
}

func validate(cfg Config, priming *button.Button, buttons []*button.Button, out Outputs) error {
	if priming == nil {
		return errors.New("priming button is required")
	}
	if len(buttons) == 0 {
		return errors.New("at least one combo button is required")
	}
	if len(cfg.Combo) == 0 {
		return errors.New("combo must not be empty")
	}
	for i, idx := range cfg.Combo {
		if idx < 0 || idx >= len(buttons) {
			return fmt.Errorf("combo[%d] = %d: no such button (have %d)", i, idx, len(buttons))
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.FlashCount < 0 {
		return fmt.Errorf("flash count must not be negative, got %d", cfg.FlashCount)
	}
	if cfg.FlashInterval <= 0 {
		return fmt.Errorf("flash interval must be positive, got %v", cfg.FlashInterval)
	}
	if out.Accessory == nil || out.Green == nil || out.Red == nil || out.Blue == nil {
		return errors.New("all four outputs are required")
	}
	return nil
}

// Tick runs one poll cycle and returns the events that occurred.
//
// The priming button is checked first and always wins. The red flasher
// then advances independently of the state, and finally the state logic
// runs. Button read and output write errors are returned after the
// cycle completes; they do not stop the state machine.
func (l *Lock) Tick(now time.Time) ([]Event, error) {
	if l.halted {
		return nil, ErrHalted
	}
	l.errs = l.errs[:0]

	var events []Event

	if err := l.priming.Tick(now); err != nil {
		l.errs = append(l.errs, fmt.Errorf("priming button: %w", err))
	} else if l.priming.Pressed() {
		l.prime(now)
		events = append(events, l.event(now, EventPrimed))
	}

	l.advanceFlash(now)

	switch l.state {
	case NotPrimed:
		l.write(accessory, false)
		l.write(green, false)
		l.write(blue, true)

	case Primed:
		l.write(accessory, false)
		l.write(green, false)
		l.write(blue, false)

		l.collect(now)

		if len(l.input) == len(l.cfg.Combo) {
			if l.matches() {
				l.state = CorrectCombo
				l.counts.Correct++
				l.accept()
				events = append(events, l.event(now, EventCorrect))
			} else {
				l.state = IncorrectCombo
				l.counts.Incorrect++
				l.retry()
				events = append(events, l.event(now, EventIncorrect))
			}
		} else if now.Sub(l.entryStart) >= l.cfg.Timeout {
			l.state = NotPrimed
			l.input = l.input[:0]
			l.counts.Timeouts++
			events = append(events, l.event(now, EventTimeout))
		}

	case CorrectCombo:
		l.accept()

	case IncorrectCombo:
		l.retry()

	default:
		l.write(green, true)
		l.write(red, true)
		l.write(blue, true)
		l.halted = true
		events = append(events, l.event(now, EventFault))
		l.errs = append(l.errs, ErrHalted)
	}

	return events, errors.Join(l.errs...)
}

// prime arms the lock for a fresh attempt with a fresh entry window.
func (l *Lock) prime(now time.Time) {
	l.state = Primed
	l.input = l.input[:0]
	l.entryStart = now
	l.counts.Primes++
}

// collect ticks every combo button and appends pressed indices.
// Presses that arrive once the buffer is full are dropped.
func (l *Lock) collect(now time.Time) {
	for i, b := range l.buttons {
		if err := b.Tick(now); err != nil {
			l.errs = append(l.errs, fmt.Errorf("combo button %d: %w", i, err))
			continue
		}
		if !b.Pressed() || len(l.input) == len(l.cfg.Combo) {
			continue
		}
		l.input = append(l.input, i)
	}
}

func (l *Lock) matches() bool {
	for i, want := range l.cfg.Combo {
		if l.input[i] != want {
			return false
		}
	}
	return true
}

// accept drives the unlocked outputs and interrupts any red flashing.
func (l *Lock) accept() {
	l.write(accessory, true)
	l.write(green, true)
	l.write(red, false)
	l.write(blue, false)
	l.flashing = false
	l.toggles = 0
}

// retry starts the red flash and re-primes for another attempt. The entry
// window is not restarted, so failed attempts spend the same budget.
func (l *Lock) retry() {
	l.flashing = true
	l.toggles = 0
	l.write(red, false)

	l.state = Primed
	l.input = l.input[:0]
}

func (l *Lock) advanceFlash(now time.Time) {
	if !l.flashing {
		return
	}
	if l.toggles < 2*l.cfg.FlashCount && now.Sub(l.lastToggle) >= l.cfg.FlashInterval {
		l.write(red, !l.levels[red])
		l.lastToggle = now
		l.toggles++
	}
	if l.toggles >= 2*l.cfg.FlashCount {
		l.flashing = false
		l.toggles = 0
	}
}

func (l *Lock) write(s signal, high bool) {
	if err := l.out[s].Set(high); err != nil {
		l.errs = append(l.errs, fmt.Errorf("set %s: %w", signalNames[s], err))
		return
	}
	l.levels[s] = high
}

func (l *Lock) event(now time.Time, typ EventType) Event {
	return Event{Timestamp: now, Type: typ, State: l.state}
}

// State returns the current state.
func (l *Lock) State() State {
	return l.state
}

// IsHalted reports whether the lock has entered the fail-safe state.
func (l *Lock) IsHalted() bool {
	return l.halted
}

// Snapshot returns a point-in-time view of the lock at now.
func (l *Lock) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		State:       l.state,
		InputLength: len(l.input),
		ComboLength: len(l.cfg.Combo),
		Flashing:    l.flashing,
		Halted:      l.halted,
		Outputs: Levels{
			Accessory: l.levels[accessory],
			Green:     l.levels[green],
			Red:       l.levels[red],
			Blue:      l.levels[blue],
		},
		Counts: l.counts,
	}
	if l.state == Primed {
		if left := l.cfg.Timeout - now.Sub(l.entryStart); left > 0 {
			s.Remaining = left
		}
	}
	return s
}

// CountsSnapshot returns the event counts since startup.
func (l *Lock) CountsSnapshot() Counts {
	return l.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (l *Lock) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(l.lastHeartbeat) < interval {
		return nil
	}

	l.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(l.startTime),
		Counts:    l.counts,
	}
}

// Close drives every output low.
func (l *Lock) Close() error {
	l.errs = l.errs[:0]
	for s := signal(0); s < numSignals; s++ {
		l.write(s, false)
	}
	return errors.Join(l.errs...)
}
