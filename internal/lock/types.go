// Package lock contains the combination lock state machine.
// Like package button it never sleeps and never reads the clock:
// every Tick is handed the current time.
package lock

import (
	"errors"
	"time"

	"github.com/sweeney/combo-lock/internal/gpio"
)

// ErrHalted is returned by Tick once the lock has entered the fail-safe
// state. All indicators are lit and no further input is processed.
var ErrHalted = errors.New("lock halted in undefined state")

// State is the lock's primary state.
type State int

const (
	NotPrimed State = iota
	Primed
	CorrectCombo
	IncorrectCombo
)

func (s State) String() string {
	switch s {
	case NotPrimed:
		return "NOT_PRIMED"
	case Primed:
		return "PRIMED"
	case CorrectCombo:
		return "CORRECT_COMBO"
	case IncorrectCombo:
		return "INCORRECT_COMBO"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a lock event.
type EventType string

const (
	EventPrimed    EventType = "PRIMED"
	EventCorrect   EventType = "CORRECT"
	EventIncorrect EventType = "INCORRECT"
	EventTimeout   EventType = "TIMEOUT"
	EventFault     EventType = "FAULT"
)

// Event is a lock transition to be logged and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State // state after the event
}

// Counts tracks the number of each event since startup.
type Counts struct {
	Primes    int
	Correct   int
	Incorrect int
	Timeouts  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Outputs are the lines driven by the lock.
type Outputs struct {
	Accessory gpio.Output
	Green     gpio.Output
	Red       gpio.Output
	Blue      gpio.Output
}

// Levels are the last levels written to each output.
type Levels struct {
	Accessory bool
	Green     bool
	Red       bool
	Blue      bool
}

// Config holds the fixed lock settings.
type Config struct {
	// Combo is the target sequence of combo button indices.
	Combo []int
	// Timeout is the entry window measured from priming.
	Timeout time.Duration
	// FlashCount is the number of red flashes after a wrong combo.
	// The red output toggles 2*FlashCount times.
	FlashCount int
	// FlashInterval is how long red stays on, and then off, per flash.
	FlashInterval time.Duration
}

// Snapshot is a point-in-time view of the lock.
type Snapshot struct {
	State       State
	InputLength int
	ComboLength int
	Remaining   time.Duration // entry time left; zero unless Primed
	Flashing    bool
	Halted      bool
	Outputs     Levels
	Counts      Counts
}
